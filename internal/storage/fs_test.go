package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("* [ ] hello\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWritePreservesMode(t *testing.T) {
	s := tempWorkspace(t)
	abs := filepath.Join(s.Root(), "mode.md")
	if err := os.WriteFile(abs, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("mode.md", []byte("y")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestList_FiltersExtensions(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("notes/a.md", []byte("a"))
	_ = s.Write("notes/b.txt", []byte("b"))
	_ = s.Write("notes/sub/c.md", []byte("c"))

	items, err := s.List("notes", []string{".md"}, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "notes/a.md" {
		t.Errorf("items = %+v, want [notes/a.md]", items)
	}

	items, err = s.List("notes", []string{".md", ".txt"}, true)
	if err != nil {
		t.Fatalf("List recursive: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len = %d, want 3", len(items))
	}
}

func TestList_MissingDir(t *testing.T) {
	s := tempWorkspace(t)
	_, err := s.List("nope", []string{".md"}, false)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestModTime(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("m.md", []byte("x"))
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(s.Root(), "m.md"), want, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.ModTime("m.md")
	if err != nil {
		t.Fatalf("ModTime: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("ModTime = %v, want %v", got, want)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestRel(t *testing.T) {
	s := tempWorkspace(t)
	rel, err := s.Rel(filepath.Join(s.Root(), "notes", "a.md"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if rel != "notes/a.md" {
		t.Errorf("rel = %q", rel)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".todosync-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/todosync-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "todosync-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestClean_MatchesListForm(t *testing.T) {
	cases := map[string]string{
		"./notes/todo.md":  "notes/todo.md",
		"notes//a/../b.md": "notes/b.md",
		"todo.md":          "todo.md",
		"notes/":           "notes",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}
