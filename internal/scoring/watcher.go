package scoring

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the models directory and reinitializes the service
// when the activation pointer changes, so a trainer run started from
// another process takes effect without a restart.
type Watcher struct {
	service   *Service
	modelsDir string
	watcher   *fsnotify.Watcher
	logger    *slog.Logger

	// Debouncing
	pendingMu    sync.Mutex
	pendingAt    time.Time
	pending      bool
	debounceTime time.Duration
}

// NewWatcher creates a watcher over the service's models directory.
func NewWatcher(service *Service, modelsDir string, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		service:      service,
		modelsDir:    modelsDir,
		watcher:      watcher,
		logger:       logger,
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// Watch starts watching for pointer changes.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.watcher.Add(w.modelsDir); err != nil {
		return err
	}

	w.logger.Info("watching for model activation changes", "dir", w.modelsDir)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping model watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("model watcher error", "error", err)
		}
	}
}

// handleEvent queues a reinitialization when the pointer file changes.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Base(event.Name) != PointerFileName {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingAt = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("model pointer changed", "op", event.Op.String())
}

// processDebounced reinitializes once events have settled.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pendingMu.Lock()
			ready := w.pending && time.Since(w.pendingAt) >= w.debounceTime
			if ready {
				w.pending = false
			}
			w.pendingMu.Unlock()

			if !ready {
				continue
			}
			if err := w.service.Initialize(ctx); err != nil {
				w.logger.Warn("failed to reinitialize after pointer change", "error", err)
			} else {
				w.logger.Info("scoring service reinitialized after pointer change")
			}
		}
	}
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
