package testsupport

import (
	"context"
	"testing"

	"recogni/internal/blobstore"
	"recogni/internal/config"
	"recogni/internal/docstore"
)

// MustOpenDocStore opens the configured document store and registers cleanup.
func MustOpenDocStore(t testing.TB, cfg *config.Config) docstore.Store {
	t.Helper()

	store, err := docstore.Open(context.Background(), cfg.DocStore)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenBlob opens the blob store for a container kind (audio, json, logs).
func MustOpenBlob(t testing.TB, cfg *config.Config, kind string) blobstore.Store {
	t.Helper()

	container, err := cfg.Container(kind)
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	store, err := blobstore.Open(context.Background(), cfg.Blob, container)
	if err != nil {
		t.Fatalf("blobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = blobstore.Close(store)
	})
	return store
}
