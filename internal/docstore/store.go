package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"recogni/internal/config"
	"recogni/internal/transcript"
)

var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("document not found")
	// ErrUnsupported reports an operation the backend does not offer.
	ErrUnsupported = errors.New("operation not supported by document store")
)

// Store persists transcription records.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Record is a transcription document as stored in the document database.
type Record struct {
	ID          string    `json:"id"`
	AudioName   string    `json:"audio_name"`
	ProcessedAt time.Time `json:"processed_at"`
	transcript.Document
}

// NewRecord assigns a fresh id and timestamp to doc. An empty audioName
// falls back to the base name of the document's audio path.
func NewRecord(doc transcript.Document, audioName string, now time.Time) Record {
	if audioName == "" {
		audioName = filepath.Base(doc.AudioPath)
	}
	return Record{
		ID:          uuid.NewString(),
		AudioName:   audioName,
		ProcessedAt: now.UTC(),
		Document:    doc,
	}
}

// Open returns the configured backend.
func Open(ctx context.Context, cfg config.DocStore) (Store, error) {
	switch cfg.Provider {
	case config.ProviderCosmos:
		return OpenCosmos(cfg)
	case config.ProviderSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "", config.ProviderNone:
		return nil, errors.New("document store not configured (set docstore.provider)")
	default:
		return nil, fmt.Errorf("unsupported document store provider %q", cfg.Provider)
	}
}

func encodeRecord(rec Record) ([]byte, error) {
	if rec.ID == "" {
		return nil, errors.New("record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
