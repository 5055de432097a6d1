package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"recogni/internal/blobstore"
	"recogni/internal/config"
	"recogni/internal/deps"
	"recogni/internal/docstore"
)

// sentinelName is looked up, never written, to prove a store answers.
const sentinelName = "recogni-preflight-sentinel"

const (
	storeTimeout        = 15 * time.Second
	fasterWhisperModule = "faster_whisper"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// LauncherRequirements lists the binary that starts the transcription helper.
func LauncherRequirements(cfg *config.Config) []deps.Requirement {
	if cfg.Transcription.Launcher == config.LauncherUV {
		return []deps.Requirement{{
			Name:        "uv",
			Command:     "uv",
			Description: "Runs the transcription helper with faster-whisper",
		}}
	}
	return []deps.Requirement{{
		Name:        "Python",
		Command:     cfg.Transcription.Python,
		Description: "Runs the transcription helper",
	}}
}

// CheckLauncher reports whether the helper launcher binary resolves on PATH.
func CheckLauncher(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(LauncherRequirements(cfg))
}

// CheckSystemDeps evaluates the launcher, the faster_whisper module (python
// launcher only) and the optional nvidia-smi lookup. run may be nil.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, run deps.Runner) []deps.Status {
	statuses := CheckLauncher(cfg)
	if cfg.Transcription.Launcher == config.LauncherPython && statuses[0].Available {
		statuses = append(statuses, deps.CheckPythonModule(ctx, run, statuses[0].Command, fasterWhisperModule))
	}
	return append(statuses, deps.CheckBinaries([]deps.Requirement{{
		Name:        "nvidia-smi",
		Command:     "nvidia-smi",
		Description: "Detects CUDA devices",
		Optional:    true,
	}})...)
}

// CheckBlobContainer opens one container and looks up a sentinel blob.
func CheckBlobContainer(ctx context.Context, name string, cfg config.Blob, container string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	store, err := blobstore.Open(checkCtx, cfg, container)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer blobstore.Close(store)
	if _, err := store.Exists(checkCtx, sentinelName); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", store.Location(), summarizeStoreError(err))}
	}
	return Result{Name: name, Passed: true, Detail: store.Location() + " (reachable)"}
}

// CheckDocStore opens the document store and reads a sentinel id; not found
// counts as reachable.
func CheckDocStore(ctx context.Context, cfg config.DocStore) Result {
	const name = "Document store"

	checkCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	store, err := docstore.Open(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	if _, err := store.Get(checkCtx, sentinelName); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", cfg.Provider, summarizeStoreError(err))}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Provider + " (reachable)"}
}

func summarizeStoreError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (store unreachable)"
	}
	return err.Error()
}
