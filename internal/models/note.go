package models

import "time"

// NoteMetadata is a lightweight listing entry for a document in the workspace.
type NoteMetadata struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}
