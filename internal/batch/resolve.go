package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultAudioExtension is used when no extension is configured.
const DefaultAudioExtension = ".wav"

// ErrInvalidInput reports an input path that is neither a file nor a directory.
var ErrInvalidInput = errors.New("invalid input path")

// ResolveAudioFiles expands path into the audio files to process. A regular
// file is returned as is; a directory yields its regular files whose extension
// matches ext (case-insensitive), sorted by name. Subdirectories are not
// searched.
func ResolveAudioFiles(path, ext string) ([]string, error) {
	ext = normalizeExt(ext)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, path, err)
	}
	if info.Mode().IsRegular() {
		return []string{path}, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a regular file or directory", ErrInvalidInput, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return DefaultAudioExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
