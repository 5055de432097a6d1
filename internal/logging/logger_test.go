package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recogni/internal/config"
	"recogni/internal/logging"
)

func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(data)
}

func TestConsoleLoggerLayout(t *testing.T) {
	path := tempLogPath(t)
	noColor := false
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}, Color: &noColor})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := logging.WithAudio(logging.WithRun(context.Background(), "run-1"), "/calls/2874774.wav")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "batch")).Info("transcription saved", logging.String("path", "json files/a.json"), logging.Int("words", 7))
	logger.Debug("hidden")

	out := readLog(t, path)
	if !strings.Contains(out, "INFO [batch] 2874774.wav – transcription saved") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, `path="json files/a.json"`) || !strings.Contains(out, "words=7") {
		t.Fatalf("expected quoted fields: %q", out)
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("expected run id suppressed at info: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller at info level: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes: %q", out)
	}
}

func TestConsoleLoggerDebugIncludesSourceAndRun(t *testing.T) {
	path := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WithContext(logging.WithRun(context.Background(), "run-2"), logger).Debug("debug line")
	out := readLog(t, path)
	if !strings.Contains(out, "logger_test.go:") || !strings.Contains(out, "run_id=run-2") {
		t.Fatalf("expected caller and run id: %q", out)
	}
}

func TestConsoleLoggerColor(t *testing.T) {
	path := tempLogPath(t)
	on := true
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}, Color: &on})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("careful")
	if out := readLog(t, path); !strings.Contains(out, "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected colored warn label: %q", out)
	}
}

func TestJSONLogger(t *testing.T) {
	path := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.ErrorWithContext(logger, "write failed", "json_write_failed", logging.Error(errors.New("disk full")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "error" || entry["msg"] != "write failed" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[logging.FieldEventType] != "json_write_failed" || entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected enforced fields: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 5, 1, 13, 4, 5, 0, time.Local)

	logger, logPath, err := logging.NewFromConfig(&cfg, now)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if filepath.Base(logPath) != "transcription_20240501_130405.log" {
		t.Fatalf("unexpected run log path %q", logPath)
	}
	logger.Info("run started")
	if out := readLog(t, logPath); !strings.Contains(out, "run started") || strings.Contains(out, "\x1b[") {
		t.Fatalf("unexpected run log content: %q", out)
	}

	cfg.Logging.File = false
	if _, logPath, err := logging.NewFromConfig(&cfg, now); err != nil || logPath != "" {
		t.Fatalf("expected no file when disabled: %q %v", logPath, err)
	}
}

func TestWarnWithContextDefaults(t *testing.T) {
	path := tempLogPath(t)
	off := false
	logger, err := logging.New(logging.Options{OutputPaths: []string{path}, Color: &off})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "segment clamped", "segment_clamped", logging.String(logging.FieldImpact, "duration ignored"))
	out := readLog(t, path)
	for _, want := range []string{"event_type=segment_clamped", "error_hint=", `impact="duration ignored"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range cases {
		if got := logging.ParseLevel(in).String(); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := logging.WithRun(context.Background(), "  ")
	if _, ok := logging.RunIDFromContext(ctx); ok {
		t.Fatal("expected blank run id to be ignored")
	}
	ctx = logging.WithAudio(logging.WithRun(ctx, "abc"), "a.wav")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 || fields[0].Key != logging.FieldRunID || fields[1].Key != logging.FieldAudio {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger for nil input")
	}
}
