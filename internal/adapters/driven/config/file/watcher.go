package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/movement-lens/internal/logger"
)

// DefaultReloadDelay coalesces the burst of events editors emit on save.
const DefaultReloadDelay = 200 * time.Millisecond

// Watcher reloads a ConfigStore whenever its file changes on disk.
// The directory is watched rather than the file so atomic renames are seen.
type Watcher struct {
	store    *ConfigStore
	onChange func()
	delay    time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for store. onChange runs after every
// successful reload and may be nil.
func NewWatcher(store *ConfigStore, onChange func()) *Watcher {
	return &Watcher{
		store:    store,
		onChange: onChange,
		delay:    DefaultReloadDelay,
	}
}

// Run watches until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("watching config directory %s", dir)

	defer w.stopTimer()

	name := filepath.Base(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}

// schedule (re)starts the reload timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	if err := w.store.Load(); err != nil {
		logger.Warn("config reload failed, keeping previous values: %v", err)
		return
	}
	logger.Debug("config reloaded from %s", w.store.Path())
	if w.onChange != nil {
		w.onChange()
	}
}
