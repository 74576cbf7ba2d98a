// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/todosync/internal/apperr"
	"github.com/starford/todosync/internal/duration"
	"github.com/starford/todosync/internal/models"
	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/schedule"
	"github.com/starford/todosync/internal/session"
	"github.com/starford/todosync/internal/state"
	"github.com/starford/todosync/internal/storage"
	"github.com/starford/todosync/internal/syncer"
	"github.com/starford/todosync/internal/todolist"
	"github.com/starford/todosync/internal/watch"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	keyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type application struct {
	config *Config
	in     io.Reader
	out    io.Writer
	logOut io.Writer
	now    func() time.Time

	logger  *slog.Logger
	root    string
	store   *storage.FS
	states  state.Store
	parser  *parser.Parser
	engine  *syncer.Engine
	closers []io.Closer
}

func setup(opts []Option) (*application, error) {
	app := &application{
		in:     os.Stdin,
		out:    os.Stdout,
		logOut: os.Stderr,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	app.logger = app.newLogger()
	slog.SetDefault(app.logger)

	root, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	app.root = root

	app.logger.Debug("Configuration loaded",
		slog.String("workspace", root),
		slog.String("master", cfg.Workspace.Master),
		slog.Any("notes", cfg.Notes.Dirs),
		slog.String("state_backend", cfg.State.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))
	return app, nil
}

// open wires storage, state and the sync engine. The workspace root must
// exist.
func (a *application) open() error {
	cfg := a.config
	store, err := storage.NewFS(a.root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	a.store = store

	states, err := state.Open(cfg.State.Backend, a.statePath())
	if err != nil {
		return fmt.Errorf("init state: %w", err)
	}
	a.states = states
	a.closers = append(a.closers, states)

	a.parser = parser.New(cfg.Markers)
	a.engine = syncer.New(store, states, a.parser, syncer.Options{
		NotesDirs:  cfg.Notes.Dirs,
		Extensions: cfg.Notes.Extensions,
		Recursive:  cfg.Notes.Recursive,
		MasterPath: cfg.Workspace.Master,
		TagWidth:   cfg.Tags.Width,
		Now:        a.now,
	}, a.logger)
	return nil
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func (a *application) newLogger() *slog.Logger {
	app := a.config.App
	w := a.logOut
	if app.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   app.LogFile,
			MaxSize:    app.LogRotate.MaxSizeMB,
			MaxBackups: app.LogRotate.MaxBackups,
			MaxAge:     app.LogRotate.MaxAgeDays,
		}
		a.closers = append(a.closers, lj)
		w = lj
	}
	hopts := &slog.HandlerOptions{Level: app.LogLevel}
	if app.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func (a *application) statePath() string {
	if filepath.IsAbs(a.config.State.Path) {
		return a.config.State.Path
	}
	return filepath.Join(a.root, filepath.FromSlash(a.config.State.Path))
}

func (a *application) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// RunSync performs one synchronization pass and prints a summary.
func RunSync(ctx context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}
	defer app.close()
	if err := app.open(); err != nil {
		return err
	}
	return app.sync(ctx)
}

func (a *application) sync(ctx context.Context) error {
	rep, err := a.engine.Run(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%w (run `todosync init` to create it)", err)
		}
		return err
	}
	a.printReport(rep)
	return nil
}

func (a *application) printReport(rep *syncer.Report) {
	a.printf("%s\n", okStyle.Render(fmt.Sprintf("scanned %d notes: %d new, %d completed",
		len(rep.Scanned), len(rep.New), len(rep.Completed))))
	if rep.Recovered > 0 {
		a.printf("%s\n", warnStyle.Render(fmt.Sprintf("finished %d items from an interrupted run", rep.Recovered)))
	}
	if rep.Mismatch() {
		a.printf("%s\n", warnStyle.Render(fmt.Sprintf("%d of %d completions written back; not found:",
			len(rep.Completed), rep.Requested)))
		for _, p := range rep.Skipped {
			a.printf("  %s\n", p)
		}
	}
}

// RunWatch syncs once, then again whenever notes or the master list change,
// until interrupted.
func RunWatch(ctx context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}
	defer app.close()
	if err := app.open(); err != nil {
		return err
	}

	if err := app.sync(ctx); err != nil {
		app.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return watch.Watch(gCtx, watch.Options{
			Root:       app.root,
			Dirs:       app.config.Notes.Dirs,
			Master:     app.config.Workspace.Master,
			Extensions: app.config.Notes.Extensions,
			Recursive:  app.config.Notes.Recursive,
			Debounce:   app.config.Watch.Debounce,
		}, app.logger, app.sync)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			app.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		app.logger.Error("Watch error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// FetchRequest selects the todos for a session. Exactly one of Budget,
// Substring and Keywords is set.
type FetchRequest struct {
	Budget    []string
	Substring string
	Keywords  []string
	// Run starts the interactive session on the result.
	Run bool
}

// RunFetch prints the todos selected by req and optionally works through
// them interactively.
func RunFetch(ctx context.Context, req FetchRequest, opts ...Option) error {
	modes := 0
	if len(req.Budget) > 0 {
		modes++
	}
	if req.Substring != "" {
		modes++
	}
	if len(req.Keywords) > 0 {
		modes++
	}
	if modes != 1 {
		return fmt.Errorf("fetch: give exactly one of a duration, -s or -k")
	}

	var budget time.Duration
	if len(req.Budget) > 0 {
		d, err := duration.ParseTokens(req.Budget)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		budget = d
	}

	app, err := setup(opts)
	if err != nil {
		return err
	}
	defer app.close()
	if err := app.open(); err != nil {
		return err
	}

	master, err := app.engine.Master()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	outstanding, err := master.Outstanding()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	cands := schedule.Collect(outstanding, app.logger)

	switch {
	case req.Substring != "":
		cands, err = schedule.BySubstring(cands, req.Substring)
	case len(req.Keywords) > 0:
		cands, err = schedule.ByKeywords(cands, req.Keywords)
	}
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	prios := schedule.Priorities(cands, app.now())
	var res schedule.Result
	if len(req.Budget) > 0 {
		res = schedule.Schedule(cands, prios, app.config.Schedule.PriorityThreshold, budget)
	} else {
		res = schedule.All(cands, prios)
	}
	if err := schedule.Render(app.out, res); err != nil {
		return err
	}
	if !req.Run || len(res.Items) == 0 {
		return nil
	}

	sum, err := session.Run(ctx, res.Items, session.Options{
		In:       app.in,
		Out:      app.out,
		Tick:     app.config.Session.Tick,
		Complete: app.completeInMaster,
		Logger:   app.logger,
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	app.logger.Info("session: finished",
		slog.Int("completed", len(sum.Completed)),
		slog.Int("skipped", len(sum.Skipped)),
		slog.Bool("cancelled", sum.Cancelled))
	return nil
}

// completeInMaster checks the item off in the master list. The next sync
// carries the completion to its note.
func (a *application) completeInMaster(it models.ScheduledItem) error {
	if it.Item.ID == "" {
		return fmt.Errorf("%q is untracked; check it off by hand", it.Item.Text)
	}
	master, err := a.engine.Master()
	if err != nil {
		return err
	}
	changed, err := master.CheckOff(it.Item.ID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return a.engine.Save(master)
}

// RunInit creates the workspace: root, notes dirs, an empty master list
// and the state location. Existing files are left alone.
func RunInit(_ context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}
	defer app.close()

	if err := os.MkdirAll(app.root, 0o755); err != nil {
		return fmt.Errorf("init: create workspace: %w", err)
	}
	for _, dir := range app.config.Notes.Dirs {
		if err := os.MkdirAll(filepath.Join(app.root, filepath.FromSlash(dir)), 0o755); err != nil {
			return fmt.Errorf("init: create notes dir: %w", err)
		}
	}
	if err := app.open(); err != nil {
		return err
	}

	master := app.config.Workspace.Master
	if _, err := app.store.ModTime(master); errors.Is(err, fs.ErrNotExist) {
		if err := app.store.Write(master, todolist.Template()); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		app.printf("%s\n", okStyle.Render("created "+master))
	} else if err != nil {
		return fmt.Errorf("init: %w", err)
	} else {
		app.printf("%s\n", keyStyle.Render(master+" already exists"))
	}
	app.printf("%s\n", keyStyle.Render("state in "+app.statePath()))
	return nil
}

// RunStatus prints what the state and the master list currently hold.
func RunStatus(ctx context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}
	defer app.close()
	if err := app.open(); err != nil {
		return err
	}

	st, err := app.engine.Status(ctx)
	if err != nil {
		return err
	}
	rows := []struct {
		key string
		val any
	}{
		{"tracked", st.Tracked},
		{"completed", st.Completed},
		{"outstanding", st.Outstanding},
		{"notes", st.Notes},
		{"unchecked in master", st.Unchecked},
		{"next id", fmt.Sprintf("0x%0*X", app.config.Tags.Width, st.Counter)},
	}
	for _, r := range rows {
		app.printf("%s %v\n", keyStyle.Render(fmt.Sprintf("%-20s", r.key)), r.val)
	}
	if st.Pending > 0 {
		app.printf("%s\n", warnStyle.Render(fmt.Sprintf("%d items pending from an interrupted run; run sync", st.Pending)))
	}
	return nil
}
