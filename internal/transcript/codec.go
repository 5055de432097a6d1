package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"recogni/internal/fileutil"
)

const indent = "    "

// Encode writes doc as indented JSON without HTML or non-ASCII escaping.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// Marshal returns the encoded form of doc.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile stores doc under dir using JSONName(doc.AudioPath) and returns
// the written path. The file is replaced atomically.
func WriteFile(dir string, doc Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output dir: %w", err)
	}
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, JSONName(doc.AudioPath))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadFile loads a document written by WriteFile.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Decode(data)
}

// Decode parses an encoded document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
