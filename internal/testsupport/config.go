package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"recogni/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Blob and document stores stay disabled unless an option enables them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "json_files")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "audios")
	cfgVal.Transcription.Device = config.DeviceCPU
	cfgVal.Transcription.ComputeType = "int8"
	cfgVal.Blob.Containers = config.Containers{Audio: "audios", JSON: "json", Logs: "logs"}
	cfgVal.DocStore.SQLitePath = filepath.Join(base, "documents.db")
	cfgVal.Logging.File = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLocalBlob points the blob store at a directory under the test root.
func WithLocalBlob() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Blob.Provider = config.ProviderLocal
		b.cfg.Blob.LocalDir = filepath.Join(b.baseDir, "blob")
	}
}

// WithSQLiteDocStore enables the sqlite document store.
func WithSQLiteDocStore() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DocStore.Provider = config.ProviderSQLite
	}
}

// WithTopN overrides the metrics top-N size.
func WithTopN(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TopN = n
	}
}

// WithNtfyTopic points notifications at url, typically an httptest server.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, python3 is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"python3"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
