package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestRelevant(t *testing.T) {
	opts := Options{Dirs: []string{"notes"}, Master: "todo.md", Extensions: []string{".md"}}
	cases := []struct {
		rel  string
		want bool
	}{
		{"todo.md", true},
		{"notes/a.md", true},
		{"notes/a.txt", false},
		{"notes/sub/b.md", false},
		{"other/c.md", false},
		{"notes/.todosync-tmp-123", false},
	}
	for _, c := range cases {
		if got := opts.relevant(c.rel); got != c.want {
			t.Errorf("relevant(%q) = %v, want %v", c.rel, got, c.want)
		}
	}

	opts.Recursive = true
	if !opts.relevant("notes/sub/b.md") {
		t.Error("recursive watch should include subdirectories")
	}
	root := Options{Dirs: []string{"."}, Extensions: []string{".md"}}
	if !root.relevant("a.md") || root.relevant("sub/a.md") {
		t.Error("root dir handling")
	}
}

func TestRelevant_NormalizedPaths(t *testing.T) {
	opts := Options{Dirs: []string{"./notes/"}, Master: "./notes/todo.md", Extensions: []string{".md"}}.normalized()
	if !opts.relevant("notes/todo.md") {
		t.Error("master change ignored")
	}
	if !opts.relevant("notes/a.md") {
		t.Error("note change ignored")
	}
	if opts.Debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", opts.Debounce, DefaultDebounce)
	}
}

func TestWatch_TriggersOnNoteChange(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Options{
			Root:       root,
			Dirs:       []string{"notes"},
			Master:     "todo.md",
			Extensions: []string{".md"},
			Debounce:   20 * time.Millisecond,
		}, logger, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "notes", "ignored.txt"), []byte("x"), 0o644)
	time.Sleep(100 * time.Millisecond)
	if n := runs.Load(); n != 0 {
		t.Fatalf("irrelevant change triggered %d runs", n)
	}

	_ = os.WriteFile(filepath.Join(root, "notes", "a.md"), []byte("* [ ] x\n"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return runs.Load() >= 1
	}, "note change did not trigger a sync")

	before := runs.Load()
	_ = os.WriteFile(filepath.Join(root, "todo.md"), []byte("#TODO\n"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return runs.Load() > before
	}, "master change did not trigger a sync")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop")
	}
}
