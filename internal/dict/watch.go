package dict

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader rebuilds in-memory state after the store changed.
type Reloader interface {
	Reload(ctx context.Context) error
}

// SourceWatcher re-imports a dictionary source file when it changes on
// disk and tells the engine to reload.
type SourceWatcher struct {
	path     string
	store    *Store
	target   Reloader
	debounce time.Duration
	logger   *slog.Logger

	// synced is signalled after every sync attempt; tests wait on it.
	synced chan error
}

// NewSourceWatcher creates a watcher for the source file at path.
func NewSourceWatcher(path string, store *Store, target Reloader, logger *slog.Logger) *SourceWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceWatcher{
		path:     path,
		store:    store,
		target:   target,
		debounce: 300 * time.Millisecond,
		logger:   logger.With("component", "dict-watch", "source", path),
	}
}

// Sync imports the source file and reloads the target once.
func (w *SourceWatcher) Sync(ctx context.Context) error {
	n, err := w.store.ImportFile(ctx, w.path)
	if err != nil {
		return err
	}
	if err := w.target.Reload(ctx); err != nil {
		return fmt.Errorf("reload after import: %w", err)
	}
	w.logger.Info("dictionary source imported", "entries", n)
	return nil
}

// Run watches the source until ctx is done. Editors often replace files
// instead of writing them in place, so the parent directory is watched.
func (w *SourceWatcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve source path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := w.Sync(ctx)
			if err != nil {
				w.logger.Warn("dictionary reload failed", "error", err)
			}
			if w.synced != nil {
				select {
				case w.synced <- err:
				default:
				}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}
