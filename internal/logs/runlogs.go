package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"recogni/internal/logging"
)

// ErrNoRunLogs is returned by Latest when the directory holds no run logs.
var ErrNoRunLogs = errors.New("no run logs found")

// RunLog describes one run log file.
type RunLog struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// RunLogs lists the run logs in dir, newest first. A missing directory yields
// an empty list.
func RunLogs(dir string) ([]RunLog, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.RunLogPattern))
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	out := make([]RunLog, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, RunLog{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	// Names embed the start time, so name order is run order.
	sort.Slice(out, func(i, j int) bool { return filepath.Base(out[i].Path) > filepath.Base(out[j].Path) })
	return out, nil
}

// Latest returns the path of the newest run log in dir.
func Latest(dir string) (string, error) {
	runs, err := RunLogs(dir)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRunLogs, dir)
	}
	return runs[0].Path, nil
}
