// Package testutil provides shared test helpers for setting up workspaces.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/todosync/internal/storage"
)

// TestWorkspace creates a temporary workspace directory with a storage.FS.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFile writes content to rel under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the contents of rel under root.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// SetModTime sets both access and modification time of rel under root.
func SetModTime(t *testing.T, root, rel string, mod time.Time) {
	t.Helper()
	if err := os.Chtimes(filepath.Join(root, filepath.FromSlash(rel)), mod, mod); err != nil {
		t.Fatal(err)
	}
}
