// Package syncer keeps the master todo list and the note documents it is
// built from in step.
//
// A run loads the persisted state, scans changed notes for untagged
// checklist items, propagates completions recorded in the master list back
// to their notes, appends the new items to the master list under today's
// date, tags the new items in their notes and persists the state again.
//
// New identifiers are journaled before any document is touched. A run that
// dies between the document writes and the final save leaves the journal
// behind, and the next run finishes the interrupted writes before doing
// anything else, so identifiers are never handed out twice for one item.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/todosync/internal/models"
	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/state"
	"github.com/starford/todosync/internal/storage"
	"github.com/starford/todosync/internal/tag"
	"github.com/starford/todosync/internal/todolist"
)

// Options configures where the engine looks for documents.
type Options struct {
	NotesDirs  []string
	Extensions []string
	Recursive  bool
	MasterPath string
	TagWidth   int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Report summarises one run.
type Report struct {
	Scanned   []string
	New       []models.NewTodo
	Requested int      // completions found in the master list
	Completed []string // completions written back to their notes
	Skipped   []string // notes that could not be written back
	Recovered int      // journal entries finished from an earlier run
}

// Mismatch reports whether some completions could not be written back.
func (r *Report) Mismatch() bool {
	return len(r.Completed) != r.Requested
}

// Engine runs the synchronization protocol.
type Engine struct {
	store  storage.Provider
	states state.Store
	parser *parser.Parser
	opts   Options
	logger *slog.Logger
}

// New creates an Engine.
func New(store storage.Provider, states state.Store, p *parser.Parser, opts Options, logger *slog.Logger) *Engine {
	if opts.TagWidth <= 0 {
		opts.TagWidth = tag.DefaultWidth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.MasterPath = storage.Clean(opts.MasterPath)
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, states: states, parser: p, opts: opts, logger: logger}
}

// Run performs one synchronization pass.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	st, err := e.states.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: load state: %w", err)
	}
	master, err := e.loadMaster()
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	rep := &Report{}
	touched := make(map[string]struct{})

	if len(st.Journal) > 0 {
		n, err := e.recover(ctx, st, master, touched)
		if err != nil {
			return nil, fmt.Errorf("sync: recover: %w", err)
		}
		rep.Recovered = n
	}

	reg := tag.NewRegistry(st.Counter, e.opts.TagWidth)

	notes, err := e.discover(st)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	for _, path := range notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, ok, err := e.extract(path, reg)
		if err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}
		if !ok {
			continue
		}
		rep.Scanned = append(rep.Scanned, path)
		touched[path] = struct{}{}
		rep.New = append(rep.New, items...)
	}

	if err := e.reconcile(ctx, st, master, rep, touched); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	if len(rep.New) > 0 {
		if err := e.track(ctx, st, master, reg, rep.New); err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}
	}

	st.Counter = reg.Next()
	st.Journal = nil
	e.observe(st, touched)
	if err := e.states.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("sync: save state: %w", err)
	}

	e.logger.Info("sync: done",
		slog.Int("scanned", len(rep.Scanned)),
		slog.Int("new", len(rep.New)),
		slog.Int("completed", len(rep.Completed)),
		slog.Int("skipped", len(rep.Skipped)),
		slog.Int("recovered", rep.Recovered))
	return rep, nil
}

// loadMaster reads and validates the master list.
func (e *Engine) loadMaster() (*todolist.List, error) {
	master, err := todolist.Load(e.store, e.opts.MasterPath, e.parser, e.opts.TagWidth)
	if err != nil {
		return nil, err
	}
	if err := master.Validate(); err != nil {
		return nil, err
	}
	return master, nil
}

// Master loads the master list for callers outside a sync run.
func (e *Engine) Master() (*todolist.List, error) {
	return e.loadMaster()
}

// Save writes master back through the engine's store.
func (e *Engine) Save(master *todolist.List) error {
	return master.Save(e.store)
}

// track journals the new items, then writes them to the master list and
// tags them in their notes.
func (e *Engine) track(ctx context.Context, st *state.State, master *todolist.List, reg *tag.Registry, items []models.NewTodo) error {
	st.Counter = reg.Next()
	for _, it := range items {
		st.Register(it.ID, it.Path)
		st.Journal = append(st.Journal, models.PendingItem{
			ID: it.ID, Path: it.Path, Line: it.Line, Raw: it.Raw, Text: it.Text,
		})
	}
	if err := e.states.Save(ctx, st); err != nil {
		return fmt.Errorf("write-ahead save: %w", err)
	}

	entries := make([]todolist.Entry, len(items))
	for i, it := range items {
		entries[i] = todolist.Entry{Text: it.Text, ID: it.ID, Path: it.Path}
	}
	if err := master.AppendToday(entries, e.opts.Now()); err != nil {
		return err
	}
	if err := master.Save(e.store); err != nil {
		return err
	}

	for _, g := range groupNew(items) {
		if err := e.tagNote(g.path, g.items); err != nil {
			return err
		}
	}
	return nil
}

// tagNote appends each item's tag to its original line.
func (e *Engine) tagNote(path string, items []models.NewTodo) error {
	data, err := e.store.Read(path)
	if err != nil {
		return fmt.Errorf("tag note: %w", err)
	}
	lines := parser.SplitLines(data)
	for _, it := range items {
		if it.Line >= len(lines) {
			return fmt.Errorf("tag note %s: line %d out of range", path, it.Line+1)
		}
		lines[it.Line] = tag.Append(lines[it.Line], it.ID)
	}
	if err := e.store.Write(path, parser.JoinLines(lines)); err != nil {
		return fmt.Errorf("tag note: %w", err)
	}
	e.logger.Debug("sync: tagged note", slog.String("path", path), slog.Int("items", len(items)))
	return nil
}

// observe records the current modification time of every touched note.
func (e *Engine) observe(st *state.State, touched map[string]struct{}) {
	for path := range touched {
		mod, err := e.store.ModTime(path)
		if err != nil {
			e.logger.Warn("sync: stat failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		st.Touch(path, mod)
	}
}

type newGroup struct {
	path  string
	items []models.NewTodo
}

// groupNew groups items by note, keeping first-seen order.
func groupNew(items []models.NewTodo) []newGroup {
	idx := make(map[string]int)
	var out []newGroup
	for _, it := range items {
		i, ok := idx[it.Path]
		if !ok {
			i = len(out)
			idx[it.Path] = i
			out = append(out, newGroup{path: it.Path})
		}
		out[i].items = append(out[i].items, it)
	}
	return out
}
