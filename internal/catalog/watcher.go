package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSettle = 250 * time.Millisecond

// Watcher re-applies the catalog file whenever it changes on disk.
type Watcher struct {
	path   string
	store  Store
	logger *zap.Logger
	settle time.Duration

	// OnReload is called after each reload attempt. Tests use it to wait
	// for the watcher.
	OnReload func(Summary, error)
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, store Store, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:   filepath.Clean(path),
		store:  store,
		logger: logger.With(zap.String("catalog", path)),
		settle: defaultSettle,
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file itself so editors that replace the file by rename keep
// triggering reloads. Bursts of events are collapsed into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch catalog directory: %w", err)
	}
	w.logger.Info("catalog watcher started")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.settle)
			}

		case <-timer.C:
			w.reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("catalog watcher error", zap.Error(err))

		case <-ctx.Done():
			w.logger.Info("catalog watcher stopping")
			return nil
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	summary, err := LoadAndApply(ctx, w.path, w.store, w.logger)
	if err != nil {
		w.logger.Warn("catalog reload finished with errors", zap.Error(err))
	} else {
		w.logger.Info("catalog reloaded")
	}
	if w.OnReload != nil {
		w.OnReload(summary, err)
	}
}
