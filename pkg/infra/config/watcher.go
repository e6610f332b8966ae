// Package config provides hot reload of file-backed data such as the
// ClinVec embedding matrix and node table.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

// ChangeHandler is invoked after a debounced burst of changes to any watched file.
// A returned error is logged; the watcher keeps running.
type ChangeHandler func(ctx context.Context, changed []string) error

// Watcher watches a fixed set of files. It watches their parent directories so
// that editors and deploy tools that replace files by rename are still seen.
type Watcher struct {
	files    map[string]struct{}
	debounce time.Duration

	mu       sync.RWMutex
	handlers map[string]ChangeHandler

	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// NewWatcher creates a watcher for the given files.
func NewWatcher(debounce time.Duration, files ...string) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("config watcher: no files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		debounce: debounce,
		handlers: make(map[string]ChangeHandler),
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("config watcher: %w", err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("config watcher: watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Subscribe registers a change handler with the given identifier.
// A handler with the same ID is replaced.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Infow("Config watcher: subscribed handler", "id", id)
}

// Unsubscribe removes a change handler by its identifier.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handlers, id)
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// Run processes file events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher: fsnotify error", "error", err.Error())
		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			clear(pending)
			w.notify(ctx, changed)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) notify(ctx context.Context, changed []string) {
	logger.Infow("Config watcher: files changed", "files", changed)

	w.mu.RLock()
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	for id, handler := range handlers {
		if err := handler(ctx, changed); err != nil {
			logger.Errorw("Config watcher: handler failed", "id", id, "error", err.Error())
		}
	}
}

// Close stops the watcher and releases the fsnotify handle.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
