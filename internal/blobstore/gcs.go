package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"recogni/internal/config"
)

// GCS maps a container onto a Cloud Storage bucket or a prefix inside one.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS builds a client from credentials_file or application default
// credentials. A custom endpoint (emulator) disables authentication.
func NewGCS(ctx context.Context, cfg config.Blob, container string) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	bucket, prefix := bucketLayout(cfg.Bucket, container)
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) Location() string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, strings.TrimSuffix(g.prefix, "/"))
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(g.prefix + name)
}

func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: g.prefix + prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", g.Location(), err)
		}
		name := strings.TrimPrefix(attrs.Name, g.prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		objects = append(objects, Object{Name: name, Size: attrs.Size, LastModified: attrs.Updated})
	}
	return objects, nil
}

func (g *GCS) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := g.object(name).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s/%s: %w", g.Location(), name, err)
}

func (g *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	reader, err := g.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", g.Location(), name, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s/%s: %w", g.Location(), name, err)
	}
	return reader, nil
}

func (g *GCS) Upload(ctx context.Context, name string, r io.Reader, _ int64) error {
	if err := validName(name); err != nil {
		return err
	}
	writer := g.object(name).NewWriter(ctx)
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return fmt.Errorf("upload %s/%s: %w", g.Location(), name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("upload %s/%s: %w", g.Location(), name, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := g.object(name).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%s/%s: %w", g.Location(), name, ErrNotFound)
		}
		return fmt.Errorf("delete %s/%s: %w", g.Location(), name, err)
	}
	return nil
}
