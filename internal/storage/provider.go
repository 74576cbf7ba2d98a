// Package storage defines the workspace file-system abstraction.
package storage

import (
	"time"

	"github.com/starford/todosync/internal/models"
)

// Provider is the interface for workspace file operations. Paths are
// slash-separated and relative to the workspace root.
type Provider interface {
	// List returns metadata for files under dir whose names end in one of exts.
	// Subdirectories are only descended into when recursive is set.
	List(dir string, exts []string, recursive bool) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// ModTime returns the last modification time of the file at path.
	ModTime(path string) (time.Time, error)
}
