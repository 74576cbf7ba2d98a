package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/todosync/internal/models"
	"github.com/starford/todosync/internal/storage"
)

const (
	counterFile     = "counter.yaml"
	completionsFile = "completions.yaml"
	pathsFile       = "paths.yaml"
	modTimesFile    = "modtimes.yaml"
	journalFile     = "journal.yaml"
)

type counterDoc struct {
	Next uint64 `yaml:"next"`
}

// YAMLStore keeps each blob in its own YAML file inside a directory.
type YAMLStore struct {
	fs *storage.FS
}

// OpenYAML opens (creating if needed) the state directory dir.
func OpenYAML(dir string) (*YAMLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("state: create dir: %w", err)
	}
	fsys, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	return &YAMLStore{fs: fsys}, nil
}

// Load reads every blob; missing files load as empty.
func (y *YAMLStore) Load(_ context.Context) (*State, error) {
	st := New()

	var c counterDoc
	if err := y.read(counterFile, &c); err != nil {
		return nil, err
	}
	st.Counter = c.Next

	if err := y.read(completionsFile, &st.Completions); err != nil {
		return nil, err
	}
	if err := y.read(pathsFile, &st.PathIDs); err != nil {
		return nil, err
	}
	if err := y.read(modTimesFile, &st.ModTimes); err != nil {
		return nil, err
	}
	if err := y.read(journalFile, &st.Journal); err != nil {
		return nil, err
	}
	st.normalize()
	return st, nil
}

// Save rewrites every blob. Each file is replaced atomically.
func (y *YAMLStore) Save(ctx context.Context, st *State) error {
	blobs := []struct {
		name string
		v    any
	}{
		{completionsFile, st.Completions},
		{pathsFile, st.PathIDs},
		{modTimesFile, st.ModTimes},
		{journalFile, journalOrEmpty(st.Journal)},
		// Counter last: a partial save never hands out an id twice.
		{counterFile, counterDoc{Next: st.Counter}},
	}
	for _, b := range blobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := yaml.Marshal(b.v)
		if err != nil {
			return fmt.Errorf("state: marshal %s: %w", b.name, err)
		}
		if err := y.fs.Write(b.name, data); err != nil {
			return fmt.Errorf("state: save %s: %w", b.name, err)
		}
	}
	return nil
}

// Close is a no-op for the file backend.
func (y *YAMLStore) Close() error { return nil }

func (y *YAMLStore) read(name string, v any) error {
	data, err := y.fs.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("state: load %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("state: parse %s: %w", name, err)
	}
	return nil
}

func journalOrEmpty(j []models.PendingItem) []models.PendingItem {
	if j == nil {
		return []models.PendingItem{}
	}
	return j
}

var _ Store = (*YAMLStore)(nil)
