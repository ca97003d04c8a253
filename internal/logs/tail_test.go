package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mptx/internal/logs"
)

func TestLastReturnsFinalLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webui.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\npartial"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("offset = %d, want end of last complete line", offset)
	}
}

func TestLastKeepsLongLinesIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webui.log")
	long := "START" + strings.Repeat("x", 70000) + "END"
	if err := os.WriteFile(path, []byte("before\n"+long+"\nafter\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 3)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 3 || lines[0] != "before" || lines[2] != "after" {
		t.Fatalf("unexpected line split: %d lines", len(lines))
	}
	if lines[1] != long {
		t.Fatalf("long line corrupted: prefix %q suffix %q len %d", lines[1][:10], lines[1][len(lines[1])-10:], len(lines[1]))
	}
	if want := int64(len("before\n") + len(long) + len("\nafter\n")); offset != want {
		t.Fatalf("offset = %d, want %d", offset, want)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestSinceRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webui.log")
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, offset, err := logs.Since(path, 1000)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(lines) != 1 || lines[0] != "fresh" || offset != 6 {
		t.Fatalf("unexpected result: %#v %d", lines, offset)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webui.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			if line == "ready" {
				cancel()
			}
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("You can now view your Streamlit app\nready\n")
	_ = f.Close()

	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, "|") != "You can now view your Streamlit app|ready" {
		t.Fatalf("unexpected lines: %#v", got)
	}
}

func TestFollowSwitchesToReplacedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webui.log")
	if err := os.WriteFile(path, []byte("old run line one\nold run line two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, offset, _ := logs.Last(path, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lines := make(chan string, 4)
	go func() {
		_ = logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) { lines <- line })
	}()

	time.Sleep(50 * time.Millisecond)
	replacement := filepath.Join(dir, "webui-next.log")
	if err := os.WriteFile(replacement, []byte("new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(replacement, path); err != nil {
		t.Fatal(err)
	}

	select {
	case line := <-lines:
		if line != "new" {
			t.Fatalf("expected first line of new file, got %q", line)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for replaced file")
	}
}
