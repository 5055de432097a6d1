package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"recogni/internal/logging"
	"recogni/internal/transcript"
)

// IngestReport lists the outcome per file.
type IngestReport struct {
	Inserted []Record
	Skipped  []string
	Failed   map[string]error
}

// ErrNoTranscription marks JSON files that are not transcription documents.
var ErrNoTranscription = errors.New("no transcription key")

// IngestDir inserts every *.json file in dir that carries a "transcription"
// key. Files are visited in name order; one bad file never blocks the rest.
func IngestDir(ctx context.Context, store Store, dir string, now func() time.Time, logger *slog.Logger) (IngestReport, error) {
	logger = logging.NewComponentLogger(logger, "docstore")
	if now == nil {
		now = time.Now
	}
	report := IngestReport{Failed: map[string]error{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read ingest directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(dir, name)
		logger.Debug("processing file", logging.String("path", path))
		doc, err := readTranscription(path)
		if errors.Is(err, ErrNoTranscription) {
			report.Skipped = append(report.Skipped, name)
			logger.Info("skipping json without transcription", logging.String("path", path))
			continue
		}
		if err != nil {
			report.Failed[name] = err
			logger.Error("document read failed",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "docstore_read_failed"),
				logging.Error(err),
			)
			continue
		}
		audioName := ""
		if doc.AudioPath == "" {
			audioName = name
		}
		rec := NewRecord(doc, audioName, now())
		if err := store.Insert(ctx, rec); err != nil {
			report.Failed[name] = err
			logger.Error("document insert failed",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "docstore_insert_failed"),
				logging.Error(err),
			)
			continue
		}
		report.Inserted = append(report.Inserted, rec)
		logger.Info("document inserted", logging.String("id", rec.ID), logging.String("path", path))
	}
	return report, nil
}

func readTranscription(path string) (transcript.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcript.Document{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return transcript.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if _, ok := fields["transcription"]; !ok {
		return transcript.Document{}, ErrNoTranscription
	}
	return transcript.Decode(data)
}
