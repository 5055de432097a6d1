package logs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineSize = 1024 * 1024

// DefaultPollInterval is how often Follow checks for appended lines.
const DefaultPollInterval = 250 * time.Millisecond

// TailResult holds lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail returns the last limit lines of path. limit <= 0 returns every line.
func Tail(path string, limit int) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	lines, offset, err := scanLines(file, limit)
	if err != nil {
		return TailResult{}, err
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

// Follow polls path from offset and calls emit with every batch of appended
// lines until ctx is done. A file truncated below offset is re-read from the
// start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func([]string) error) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		offset = result.Offset
		if len(result.Lines) > 0 {
			if err := emit(result.Lines); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	lines, end, err := scanLines(file, 0)
	if err != nil {
		return TailResult{Offset: offset}, err
	}
	return TailResult{Lines: lines, Offset: offset + end}, nil
}

// scanLines reads r to EOF keeping the last limit lines (all when limit <= 0)
// and reports how many bytes of complete lines were consumed. A trailing
// partial line is left for the next read.
func scanLines(r io.Reader, limit int) ([]string, int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var (
		lines    []string
		consumed int64
	)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineSize {
			line = line[:maxLineSize]
		}
		lines = append(lines, trimNewline(line))
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	return lines, consumed, nil
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
