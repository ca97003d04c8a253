package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const maxLineBytes = 1024 * 1024

// Last returns up to n final lines of path and the offset just past the
// last complete line. A missing file yields no lines.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	lines, offset, err := scanLines(file, 0)
	if err != nil {
		return nil, 0, err
	}
	if n <= 0 {
		return nil, offset, nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, offset, nil
}

// Since returns the complete lines written after offset. An offset past the
// end of the file (truncation) restarts from the beginning.
func Since(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	return scanLines(file, offset)
}

// Follow emits lines appended to path after offset until ctx is done. It
// wakes on filesystem events in the log directory and also polls every
// interval. It returns nil when ctx ends.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			events = watcher.Events
		}
	}

	current, _ := os.Stat(path)
	for {
		if info, err := os.Stat(path); err == nil {
			if current != nil && !os.SameFile(current, info) {
				offset = 0
			}
			current = info
		}

		lines, next, err := Since(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-events:
		case <-ticker.C:
		}
	}
}

// scanLines reads newline-terminated lines from r, which is positioned at
// start. A trailing partial line is left for the next read.
func scanLines(r io.Reader, start int64) ([]string, int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	offset := start
	var lines []string
	for {
		chunk, err := reader.ReadSlice('\n')
		switch {
		case err == nil:
			offset += int64(len(chunk))
			lines = append(lines, string(bytes.TrimRight(chunk, "\r\n")))
		case errors.Is(err, bufio.ErrBufferFull):
			// Over-long line. chunk aliases the reader's buffer, so copy it
			// before reading on.
			head := append([]byte(nil), chunk...)
			rest, rerr := reader.ReadBytes('\n')
			if rerr != nil {
				return lines, offset, nil
			}
			full := append(head, rest...)
			offset += int64(len(full))
			if len(full) > maxLineBytes {
				full = full[:maxLineBytes]
			}
			lines = append(lines, string(bytes.TrimRight(full, "\r\n")))
		case errors.Is(err, io.EOF):
			return lines, offset, nil
		default:
			return nil, start, fmt.Errorf("read log file: %w", err)
		}
	}
}
