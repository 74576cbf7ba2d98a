// Package watch re-runs sync when notes or the master list change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/todosync/internal/storage"
)

// DefaultDebounce is the quiet period after the last change before a sync.
const DefaultDebounce = 500 * time.Millisecond

// Trigger runs one sync. Errors are logged and watching continues.
type Trigger func(ctx context.Context) error

// Options selects the files whose changes trigger a sync. Dirs and Master
// are relative to Root, slash separated.
type Options struct {
	Root       string
	Dirs       []string
	Master     string
	Extensions []string
	Recursive  bool
	Debounce   time.Duration
}

// Watch blocks until ctx is cancelled, calling trigger once per burst of
// relevant changes. The files a sync writes produce one more burst, which
// finds nothing to do.
func Watch(ctx context.Context, opts Options, logger *slog.Logger, trigger Trigger) error {
	opts = opts.normalized()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range opts.Dirs {
		abs := filepath.Join(opts.Root, filepath.FromSlash(dir))
		if err := addDirs(w, abs, opts.Recursive); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("watch: notes dir missing", slog.String("dir", dir))
				continue
			}
			return err
		}
	}
	masterDir := filepath.Dir(filepath.Join(opts.Root, filepath.FromSlash(opts.Master)))
	if err := w.Add(masterDir); err != nil {
		return err
	}

	logger.Info("watch: started", slog.String("root", opts.Root), slog.Any("dirs", opts.Dirs))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(opts.Debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			if err := trigger(ctx); err != nil {
				logger.Error("watch: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && opts.Recursive {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirs(w, ev.Name, true); addErr != nil {
						logger.Warn("watch: add new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			rel, relErr := filepath.Rel(opts.Root, ev.Name)
			if relErr != nil {
				continue
			}
			if !opts.relevant(filepath.ToSlash(rel)) {
				continue
			}
			logger.Debug("watch: change", slog.String("path", filepath.ToSlash(rel)), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (o Options) normalized() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	o.Master = storage.Clean(o.Master)
	dirs := make([]string, len(o.Dirs))
	for i, d := range o.Dirs {
		dirs[i] = storage.Clean(d)
	}
	o.Dirs = dirs
	return o
}

// relevant reports whether a change to rel should trigger a sync.
func (o Options) relevant(rel string) bool {
	if rel == o.Master {
		return true
	}
	if !hasExt(rel, o.Extensions) {
		return false
	}
	for _, dir := range o.Dirs {
		dir = strings.Trim(path.Clean(dir), "/")
		parent := path.Dir(rel)
		if dir == "." || dir == "" {
			if o.Recursive || parent == "." {
				return true
			}
			continue
		}
		if parent == dir || (o.Recursive && strings.HasPrefix(rel, dir+"/")) {
			return true
		}
	}
	return false
}

func addDirs(w *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return &fs.PathError{Op: "watch", Path: root, Err: fs.ErrInvalid}
		}
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}

func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
