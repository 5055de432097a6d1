package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"recogni/internal/fileutil"
	"recogni/internal/logging"
)

// TransferReport lists the outcome of a bulk transfer per blob name.
type TransferReport struct {
	Transferred []string
	Skipped     []string
	Failed      []TransferFailure
}

// TransferFailure pairs a blob or file name with its error.
type TransferFailure struct {
	Name string
	Err  error
}

// Err joins the per-file failures, or returns nil.
func (r TransferReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
	}
	return errors.Join(errs...)
}

func (r *TransferReport) fail(logger *slog.Logger, store Store, name, step string, err error) {
	r.Failed = append(r.Failed, TransferFailure{Name: name, Err: err})
	logger.Error("blob transfer failed",
		logging.String(logging.FieldContainer, store.Location()),
		logging.String(logging.FieldBlob, name),
		logging.String(logging.FieldStep, step),
		logging.String(logging.FieldEventType, "blob_transfer_failed"),
		logging.Error(err),
	)
}

// DownloadAll copies every blob under prefix into destDir. Blobs already
// present locally are skipped.
func DownloadAll(ctx context.Context, store Store, prefix, destDir string, logger *slog.Logger) (TransferReport, error) {
	logger = logging.NewComponentLogger(logger, "blobstore")
	var report TransferReport
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return report, fmt.Errorf("create download directory: %w", err)
	}
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return report, err
	}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		dest, err := localPath(destDir, obj.Name)
		if err != nil {
			report.fail(logger, store, obj.Name, "download", err)
			continue
		}
		exists, err := fileutil.FileExists(dest)
		if err != nil {
			report.fail(logger, store, obj.Name, "download", err)
			continue
		}
		if exists {
			report.Skipped = append(report.Skipped, obj.Name)
			logger.Debug("blob already downloaded", logging.String(logging.FieldBlob, obj.Name), logging.String("path", dest))
			continue
		}
		if err := download(ctx, store, obj.Name, dest); err != nil {
			report.fail(logger, store, obj.Name, "download", err)
			continue
		}
		report.Transferred = append(report.Transferred, obj.Name)
		logger.Info("blob downloaded",
			logging.String(logging.FieldBlob, obj.Name),
			logging.String("path", dest),
			logging.Int64("bytes", obj.Size),
		)
	}
	return report, nil
}

// DownloadFile copies one blob into destDir, replacing any local copy, and
// returns the local path.
func DownloadFile(ctx context.Context, store Store, name, destDir string) (string, error) {
	dest, err := localPath(destDir, name)
	if err != nil {
		return "", err
	}
	if err := download(ctx, store, name, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ReadString returns the blob content as text.
func ReadString(ctx context.Context, store Store, name string) (string, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// UploadDir uploads the regular files of dir whose extension matches ext
// (case-insensitive; empty matches everything). Subdirectories are ignored.
func UploadDir(ctx context.Context, store Store, dir, ext string, overwrite bool, logger *slog.Logger) (TransferReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return TransferReport{}, fmt.Errorf("read upload directory: %w", err)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return UploadFiles(ctx, store, paths, overwrite, logger)
}

// UploadFiles uploads each path under its base name. Existing blobs are
// skipped unless overwrite is set, in which case they are deleted first.
func UploadFiles(ctx context.Context, store Store, paths []string, overwrite bool, logger *slog.Logger) (TransferReport, error) {
	logger = logging.NewComponentLogger(logger, "blobstore")
	var report TransferReport
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := filepath.Base(path)
		uploaded, err := UploadFile(ctx, store, path, name, overwrite)
		switch {
		case err != nil:
			report.fail(logger, store, name, "upload", err)
		case !uploaded:
			report.Skipped = append(report.Skipped, name)
			logger.Warn("blob already exists; skipping upload",
				logging.String(logging.FieldContainer, store.Location()),
				logging.String(logging.FieldBlob, name),
				logging.String(logging.FieldImpact, "remote copy left unchanged"),
				logging.String(logging.FieldErrorHint, "pass --overwrite to replace it"),
			)
		default:
			report.Transferred = append(report.Transferred, name)
			logger.Info("blob uploaded",
				logging.String(logging.FieldContainer, store.Location()),
				logging.String(logging.FieldBlob, name),
			)
		}
	}
	return report, nil
}

// UploadFile uploads path as name, reporting false when the blob exists and
// overwrite is not set.
func UploadFile(ctx context.Context, store Store, path, name string, overwrite bool) (bool, error) {
	exists, err := store.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		if !overwrite {
			return false, nil
		}
		if err := store.Delete(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("delete existing blob: %w", err)
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return false, err
	}
	if err := store.Upload(ctx, name, file, info.Size()); err != nil {
		return false, err
	}
	return true, nil
}

func download(ctx context.Context, store Store, name, dest string) error {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := fileutil.WriteReaderAtomic(dest, rc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// localPath resolves a blob name below dir, refusing names that escape it.
func localPath(dir, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("blob name %q escapes %s", name, dir)
	}
	return filepath.Join(dir, clean), nil
}
