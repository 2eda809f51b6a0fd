// Package watcher triggers incremental reindexing when the knowledge
// tree changes on disk.
//
// Events are debounced: editors produce bursts of writes per save, and
// one reindex per quiet period is enough because the orchestrator's
// hash check makes reindexing unchanged files cheap.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/recallkb/recall/internal/errors"
)

// DefaultDebounceWindow is the quiet period before a reindex fires.
const DefaultDebounceWindow = 500 * time.Millisecond

// ReindexFunc runs an incremental indexing pass.
type ReindexFunc func(ctx context.Context) error

// Watcher watches the docs tree and calls reindex after bursts of
// relevant file events settle.
type Watcher struct {
	docsDir string
	window  time.Duration
	reindex ReindexFunc
	logger  *slog.Logger
}

// New creates a watcher for the docs tree rooted at docsDir.
func New(docsDir string, window time.Duration, reindex ReindexFunc, logger *slog.Logger) (*Watcher, error) {
	if docsDir == "" {
		return nil, errors.ValidationError("docs directory is required", nil)
	}
	if reindex == nil {
		return nil, errors.InternalError("reindex callback is required", nil)
	}
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{docsDir: docsDir, window: window, reindex: reindex, logger: logger}, nil
}

// Run watches until ctx is cancelled. Reindex failures are logged and
// watching continues; only watcher setup errors are returned.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.StorageError("create file watcher", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.docsDir); err != nil {
		return err
	}

	w.logger.Info("watching_started",
		slog.String("dir", w.docsDir),
		slog.Duration("debounce", w.window))

	// The timer is created stopped; the first relevant event arms it.
	timer := time.NewTimer(w.window)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// New directories need their own watches.
			if event.Op.Has(fsnotify.Create) {
				if err := w.addRecursive(fsw, event.Name); err != nil {
					w.logger.Warn("watch_add_failed",
						slog.String("path", event.Name),
						slog.String("error", err.Error()))
				}
			}
			timer.Reset(w.window)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))

		case <-timer.C:
			w.logger.Debug("reindex_triggered")
			if err := w.reindex(ctx); err != nil {
				w.logger.Error("reindex_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// addRecursive watches path and, if it is a directory, every
// subdirectory below it. Underscore-prefixed directories are invisible
// to indexing, so they are not watched either.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// The path may have vanished between event and walk.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), "_") && p != w.docsDir {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return errors.StorageError("watch directory "+p, err)
		}
		return nil
	})
}

// relevant reports whether an event should arm the reindex timer.
// Only markdown files and directory changes matter; underscore-prefixed
// names are ignored to match the indexer's walk.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	if event.Op.Has(fsnotify.Chmod) {
		return false
	}
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return true
	}
	// Directory create/remove/rename also changes the indexable set.
	return filepath.Ext(name) == ""
}
