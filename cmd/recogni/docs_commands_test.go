package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"recogni/internal/docstore"
	"recogni/internal/testsupport"
	"recogni/internal/transcript"
)

func TestDocsIngestListShow(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSQLiteDocStore())
	testsupport.WriteDocument(t, env.cfg.Paths.OutputDir, transcript.Document{
		Prompt:        "p",
		AudioPath:     "/calls/first.wav",
		Transcription: testsupport.Segments(0, 1, "olá"),
		Metrics:       transcript.Metrics{TotalWords: 1, WordsPerMinute: 60},
	})
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.OutputDir, "settings.json"), `{"theme":"dark"}`)

	out, _, err := runCLI(t, []string{"docs", "ingest"}, env.configPath)
	if err != nil {
		t.Fatalf("docs ingest: %v\n%s", err, out)
	}
	requireContains(t, out, "Inserted: 1  Skipped: 1  Failed: 0")

	out, _, err = runCLI(t, []string{"docs", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("docs list: %v", err)
	}
	var records []docstore.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].AudioName != "first.wav" {
		t.Fatalf("unexpected records: %+v", records)
	}

	out, _, err = runCLI(t, []string{"docs", "show", records[0].ID}, env.configPath)
	if err != nil {
		t.Fatalf("docs show: %v", err)
	}
	requireContains(t, out, `"id": "`+records[0].ID+`"`)
	requireContains(t, out, `"transcription": "olá"`)
}

func TestDocsShowMissing(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSQLiteDocStore())
	_, _, err := runCLI(t, []string{"docs", "show", "nope"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDocsIngestReportsBrokenFiles(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSQLiteDocStore())
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.OutputDir, "broken.json"), `{"transcription": [`)

	out, _, err := runCLI(t, []string{"docs", "ingest"}, env.configPath)
	if err == nil {
		t.Fatal("expected ingest to report the broken file")
	}
	requireContains(t, out, "Failed: 1")
}

func TestDocsRequiresProvider(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"docs", "list"}, env.configPath); err == nil {
		t.Fatal("expected error without a document store")
	}
}
