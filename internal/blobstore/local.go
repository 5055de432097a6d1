package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"recogni/internal/fileutil"
)

// Local stores blobs as files under <root>/<container>.
type Local struct {
	dir string
}

// NewLocal returns a directory-backed store.
func NewLocal(root, container string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob.local_dir is required for the local provider")
	}
	dir := filepath.Join(root, container)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create container directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Location() string {
	return "file://" + filepath.ToSlash(l.dir)
}

func (l *Local) path(name string) (string, error) {
	return localPath(l.dir, name)
}

func (l *Local) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		// Skip in-flight atomic writes.
		if strings.HasPrefix(filepath.Base(name), ".") && strings.HasSuffix(name, ".tmp") {
			return nil
		}
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Name: name, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.Location(), err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	path, err := l.path(name)
	if err != nil {
		return false, err
	}
	return fileutil.FileExists(path)
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", l.Location(), name, ErrNotFound)
		}
		return nil, err
	}
	return file, nil
}

func (l *Local) Upload(_ context.Context, name string, r io.Reader, _ int64) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if _, err := fileutil.WriteReaderAtomic(path, r, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s/%s: %w", l.Location(), name, ErrNotFound)
		}
		return err
	}
	return nil
}
