package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"recogni/internal/config"
)

// ErrNotFound reports a missing blob.
var ErrNotFound = errors.New("blob not found")

// Store is one container (or bucket prefix) of a blob provider.
type Store interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Exists(ctx context.Context, name string) (bool, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Upload(ctx context.Context, name string, r io.Reader, size int64) error
	Delete(ctx context.Context, name string) error
	// Location describes the container for logs, e.g. "azure://account/audios".
	Location() string
}

// Object describes one listed blob.
type Object struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Open returns the store for container using the configured provider.
func Open(ctx context.Context, cfg config.Blob, container string) (Store, error) {
	container = strings.TrimSpace(container)
	if container == "" {
		return nil, errors.New("blob container is required")
	}
	switch cfg.Provider {
	case config.ProviderAzure:
		return NewAzure(cfg, container)
	case config.ProviderS3:
		return NewS3(cfg, container)
	case config.ProviderGCS:
		return NewGCS(ctx, cfg, container)
	case config.ProviderLocal:
		return NewLocal(cfg.LocalDir, container)
	case "", config.ProviderNone:
		return nil, errors.New("blob provider not configured (set blob.provider)")
	default:
		return nil, fmt.Errorf("unsupported blob provider %q", cfg.Provider)
	}
}

// Close releases provider resources when the store holds any.
func Close(store Store) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// bucketLayout maps a container onto a bucket. With a configured bucket the
// container becomes a key prefix; otherwise the container is the bucket.
func bucketLayout(bucket, container string) (string, string) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return container, ""
	}
	return bucket, strings.Trim(container, "/") + "/"
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("blob name is required")
	}
	return nil
}
