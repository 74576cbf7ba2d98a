package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/todosync/internal/duration"
	"github.com/starford/todosync/internal/models"
	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/state"
	"github.com/starford/todosync/internal/tag"
)

// discover lists the notes that changed since they were last observed.
// The master list is never treated as a note.
func (e *Engine) discover(st *state.State) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, dir := range e.opts.NotesDirs {
		metas, err := e.store.List(dir, e.opts.Extensions, e.opts.Recursive)
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("sync: notes dir missing", slog.String("dir", dir))
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, m := range metas {
			if m.Path == e.opts.MasterPath {
				continue
			}
			if _, dup := seen[m.Path]; dup {
				continue
			}
			seen[m.Path] = struct{}{}
			if !st.Modified(m.Path, m.ModTime) {
				continue
			}
			out = append(out, m.Path)
		}
	}
	return out, nil
}

// extract returns the untagged unchecked items of a note, each with a fresh
// identifier. ok is false when the note vanished before it could be read.
func (e *Engine) extract(path string, reg *tag.Registry) ([]models.NewTodo, bool, error) {
	e.logger.Debug("sync: examining note", slog.String("path", path))
	data, err := e.store.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("sync: note vanished", slog.String("path", path))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var out []models.NewTodo
	for _, m := range e.parser.Scan(parser.SplitLines(data), false) {
		if _, tracked := reg.Recognize(m.Text); tracked {
			continue
		}
		text := m.Text
		if _, err := duration.Extract(text); err != nil {
			text = duration.ApplyPlaceholder(text)
			e.logger.Warn("sync: duration missing, adding default",
				slog.String("path", path),
				slog.String("todo", m.Text),
				slog.String("default", duration.Format(duration.Placeholder)))
		}
		id, err := reg.Assign()
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, models.NewTodo{Raw: m.Text, Text: text, ID: id, Path: path, Line: m.Line})
	}
	return out, true, nil
}
