package syncer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/todosync/internal/models"
	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/state"
	"github.com/starford/todosync/internal/tag"
	"github.com/starford/todosync/internal/todolist"
)

// recover finishes the document writes of an interrupted run. Every step is
// idempotent, so a crash during recovery is recovered the same way.
func (e *Engine) recover(ctx context.Context, st *state.State, master *todolist.List, touched map[string]struct{}) (int, error) {
	journal := st.Journal
	e.logger.Warn("sync: finishing interrupted run", slog.Int("pending", len(journal)))

	var missing []todolist.Entry
	for _, p := range journal {
		if !master.Contains(p.ID) {
			missing = append(missing, todolist.Entry{Text: p.Text, ID: p.ID, Path: p.Path})
		}
	}
	if len(missing) > 0 {
		if err := master.AppendToday(missing, e.opts.Now()); err != nil {
			return 0, err
		}
		if err := master.Save(e.store); err != nil {
			return 0, err
		}
	}

	for _, g := range groupPending(journal) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := e.retagNote(g.path, g.items); err != nil {
			e.logger.Warn("sync: could not restore tags", slog.String("path", g.path), slog.String("error", err.Error()))
			continue
		}
		touched[g.path] = struct{}{}
	}

	for _, p := range journal {
		st.Register(p.ID, p.Path)
	}
	st.Journal = nil
	return len(journal), nil
}

// retagNote tags pending items that are not tagged yet. The recorded line
// is used when it still holds the item, otherwise the first untagged line
// containing the item text.
func (e *Engine) retagNote(path string, items []models.PendingItem) error {
	data, err := e.store.Read(path)
	if err != nil {
		return err
	}
	lines := parser.SplitLines(data)
	changed := false
	for _, p := range items {
		if findTagged(lines, p.ID, e.opts.TagWidth) >= 0 {
			continue
		}
		i := e.locate(lines, p)
		if i < 0 {
			e.logger.Warn("sync: pending item no longer in note", slog.String("path", path), slog.String("id", p.ID))
			continue
		}
		lines[i] = tag.Append(lines[i], p.ID)
		changed = true
	}
	if !changed {
		return nil
	}
	return e.store.Write(path, parser.JoinLines(lines))
}

func (e *Engine) locate(lines []string, p models.PendingItem) int {
	untaggedWith := func(line string) bool {
		_, tagged := tag.Recognize(line, e.opts.TagWidth)
		return !tagged && strings.Contains(line, p.Raw)
	}
	if p.Line < len(lines) && untaggedWith(lines[p.Line]) {
		return p.Line
	}
	for i, line := range lines {
		if untaggedWith(line) {
			return i
		}
	}
	return -1
}

type pendingGroup struct {
	path  string
	items []models.PendingItem
}

func groupPending(items []models.PendingItem) []pendingGroup {
	idx := make(map[string]int)
	var out []pendingGroup
	for _, it := range items {
		i, ok := idx[it.Path]
		if !ok {
			i = len(out)
			idx[it.Path] = i
			out = append(out, pendingGroup{path: it.Path})
		}
		out[i].items = append(out[i].items, it)
	}
	return out
}
