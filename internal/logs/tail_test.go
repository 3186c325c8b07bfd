package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"tagwarden/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagwarden.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a run_id=1\nb run_id=2\nc run_id=1\nd run_id=2\n")

	tests := []struct {
		name  string
		opts  logs.TailOptions
		lines []string
	}{
		{name: "last two", opts: logs.TailOptions{Offset: -1, Limit: 2}, lines: []string{"c run_id=1", "d run_id=2"}},
		{name: "more than present", opts: logs.TailOptions{Offset: -1, Limit: 10}, lines: []string{"a run_id=1", "b run_id=2", "c run_id=1", "d run_id=2"}},
		{name: "filtered", opts: logs.TailOptions{Offset: -1, Limit: 10, Match: "run_id=1"}, lines: []string{"a run_id=1", "c run_id=1"}},
		{name: "filtered ring", opts: logs.TailOptions{Offset: -1, Limit: 1, Match: "run_id=2"}, lines: []string{"d run_id=2"}},
		{name: "zero limit", opts: logs.TailOptions{Offset: -1}, lines: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := logs.Tail(context.Background(), path, tt.opts)
			if err != nil {
				t.Fatalf("Tail: %v", err)
			}
			if !slices.Equal(result.Lines, tt.lines) {
				t.Fatalf("lines = %#v, want %#v", result.Lines, tt.lines)
			}
			if result.Offset == 0 {
				t.Fatal("expected offset at end of file")
			}
		})
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "missing.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTailFromOffsetRestartsAfterTruncation(t *testing.T) {
	path := writeLog(t, "one\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 1000})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"one"}) {
		t.Fatalf("lines = %#v", result.Lines)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	done := make(chan logs.TailResult, 1)
	go func(offset int64) {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		done <- res
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	appendLog(t, path, "later\n")

	select {
	case res := <-done:
		if !slices.Equal(res.Lines, []string{"later"}) {
			t.Fatalf("unexpected follow lines: %#v", res.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestFollowStopsOnCancel(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 4)
	errs := make(chan error, 1)
	go func() {
		errs <- logs.Follow(ctx, path, int64(len("start\n")), "run_id=7", func(lines []string) error {
			for _, line := range lines {
				got <- line
			}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "skip run_id=8\nkeep run_id=7\n")

	select {
	case line := <-got:
		if line != "keep run_id=7" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not emit")
	}

	cancel()
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop")
	}
}
