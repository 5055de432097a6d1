package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"recogni/internal/deps"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Python", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Python:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Python", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "Python", Available: false},
		{Name: "uv", Available: true, Command: "/usr/bin/uv"},
		{Name: "nvidia-smi", Available: false, Optional: true, Detail: `binary "nvidia-smi" not found`},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR] not available") {
		t.Fatalf("expected error detail first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: /usr/bin/uv)") {
		t.Fatalf("expected ready detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN]") {
		t.Fatalf("expected optional dependency to warn, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") || !strings.Contains(lines[3], "Python") {
		t.Fatalf("expected missing summary, got %q", lines[3])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
