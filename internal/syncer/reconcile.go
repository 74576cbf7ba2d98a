package syncer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/state"
	"github.com/starford/todosync/internal/tag"
	"github.com/starford/todosync/internal/todolist"
)

type completionGroup struct {
	path string
	ids  []string
}

// reconcile checks off, in their notes, the items that were checked in the
// master list since the last run. A note that cannot be read or written is
// skipped and its items stay outstanding for the next run.
func (e *Engine) reconcile(ctx context.Context, st *state.State, master *todolist.List, rep *Report, touched map[string]struct{}) error {
	groups := e.completionGroups(st, master)
	for _, g := range groups {
		rep.Requested += len(g.ids)
	}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.checkOffNote(g.path, g.ids); err != nil {
			e.logger.Warn("sync: completion write-back skipped",
				slog.String("path", g.path),
				slog.Int("items", len(g.ids)),
				slog.String("error", err.Error()))
			rep.Skipped = append(rep.Skipped, g.path)
			continue
		}
		for _, id := range g.ids {
			st.MarkCompleted(id)
		}
		rep.Completed = append(rep.Completed, g.ids...)
		touched[g.path] = struct{}{}
	}
	if rep.Mismatch() {
		e.logger.Warn("sync: some notes could not be found; move them back or rebuild the path records",
			slog.Int("requested", rep.Requested),
			slog.Int("completed", len(rep.Completed)))
	}
	return nil
}

// completionGroups returns the outstanding identifiers checked in the
// master list, grouped by note in first-seen order.
func (e *Engine) completionGroups(st *state.State, master *todolist.List) []completionGroup {
	idx := make(map[string]int)
	seen := make(map[string]struct{})
	var out []completionGroup
	for _, id := range master.CheckedIDs() {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rec, ok := st.Outstanding(id)
		if !ok {
			continue
		}
		i, ok := idx[rec.Path]
		if !ok {
			i = len(out)
			idx[rec.Path] = i
			out = append(out, completionGroup{path: rec.Path})
		}
		out[i].ids = append(out[i].ids, id)
	}
	return out
}

// checkOffNote rewrites the marker of every line tagged with one of ids.
// Lines already checked are left alone.
func (e *Engine) checkOffNote(path string, ids []string) error {
	data, err := e.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("sync: note not found", slog.String("path", path))
		}
		return err
	}
	lines := parser.SplitLines(data)
	changed := false
	for _, id := range ids {
		i := findTagged(lines, id, e.opts.TagWidth)
		if i < 0 {
			e.logger.Warn("sync: identifier no longer in note", slog.String("path", path), slog.String("id", id))
			continue
		}
		out, ok := e.parser.CheckOff(lines[i])
		if !ok {
			e.logger.Warn("sync: tagged line has no checklist marker", slog.String("path", path), slog.String("id", id))
			continue
		}
		if out != lines[i] {
			lines[i] = out
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return e.store.Write(path, parser.JoinLines(lines))
}

func findTagged(lines []string, id string, width int) int {
	for i, line := range lines {
		if t, ok := tag.Recognize(line, width); ok && t.ID() == id {
			return i
		}
	}
	return -1
}
