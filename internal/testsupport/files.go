package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"recogni/internal/transcript"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Segments builds ordered segments from alternating (start, end, text)
// triples, e.g. Segments(0, 2, "olá", 2, 4, "tudo bem").
func Segments(values ...any) []transcript.Segment {
	segments := make([]transcript.Segment, 0, len(values)/3)
	for i := 0; i+2 < len(values); i += 3 {
		segments = append(segments, transcript.Segment{
			Order: len(segments),
			Start: toFloat(values[i]),
			End:   toFloat(values[i+1]),
			Text:  values[i+2].(string),
		})
	}
	return segments
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		panic("testsupport.Segments: start/end must be int or float64")
	}
}

// WriteDocument writes doc as <dir>/<basename>.json and returns the path.
func WriteDocument(t testing.TB, dir string, doc transcript.Document) string {
	t.Helper()
	path, err := transcript.WriteFile(dir, doc)
	if err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}
