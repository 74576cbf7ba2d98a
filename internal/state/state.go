// Package state persists the cross-run memory of the sync engine: the
// identifier counter, completion records, the per-note identifier lists,
// note modification times and the write-ahead journal.
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/todosync/internal/models"
)

// Backends.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// State is loaded at the start of a run, mutated in memory and saved as a
// whole at the end.
type State struct {
	Counter     uint64
	Completions map[string]models.Completion
	PathIDs     map[string][]string
	ModTimes    map[string]time.Time
	Journal     []models.PendingItem
}

// New returns an empty state, the state of a first run.
func New() *State {
	return &State{
		Completions: make(map[string]models.Completion),
		PathIDs:     make(map[string][]string),
		ModTimes:    make(map[string]time.Time),
	}
}

// Register records a freshly assigned identifier as outstanding.
func (s *State) Register(id, path string) {
	if _, ok := s.Completions[id]; ok {
		return
	}
	s.Completions[id] = models.Completion{Completed: false, Path: path}
	s.PathIDs[path] = append(s.PathIDs[path], id)
}

// MarkCompleted flips a record to completed. Records never flip back.
func (s *State) MarkCompleted(id string) {
	rec, ok := s.Completions[id]
	if !ok {
		return
	}
	rec.Completed = true
	s.Completions[id] = rec
}

// Outstanding reports whether id is tracked and not yet completed.
func (s *State) Outstanding(id string) (models.Completion, bool) {
	rec, ok := s.Completions[id]
	if !ok || rec.Completed {
		return rec, false
	}
	return rec, true
}

// Modified reports whether a note changed since it was last observed.
// Notes never observed are always modified.
func (s *State) Modified(path string, mod time.Time) bool {
	seen, ok := s.ModTimes[path]
	if !ok {
		return true
	}
	return mod.After(seen)
}

// Touch records the observed modification time of path.
func (s *State) Touch(path string, mod time.Time) {
	s.ModTimes[path] = mod
}

// Store loads and saves State as a unit.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
	Close() error
}

// Open returns the Store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendYAML, "":
		return OpenYAML(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("state: unknown backend %q", backend)
	}
}

func (s *State) normalize() {
	if s.Completions == nil {
		s.Completions = make(map[string]models.Completion)
	}
	if s.PathIDs == nil {
		s.PathIDs = make(map[string][]string)
	}
	if s.ModTimes == nil {
		s.ModTimes = make(map[string]time.Time)
	}
}
