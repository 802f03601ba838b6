// Package watcher hot-reloads the glossary when files in its directory
// change outside the API, for example when an operator copies a CSV in.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// DefaultDebounce is how long the directory must be quiet before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Reloader re-reads the glossary directory.
type Reloader interface {
	Load(ctx context.Context) error
}

// Stats counts watcher activity.
type Stats struct {
	Events     int
	Reloads    int
	Errors     int
	LastReload time.Time
	LastError  string
}

// Option configures a GlossaryWatcher.
type Option func(*GlossaryWatcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *GlossaryWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// GlossaryWatcher reloads the glossary after bursts of file changes settle.
type GlossaryWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	reloader Reloader
	debounce time.Duration

	// lastEvent is zero when no reload is pending.
	lastEvent time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

// NewGlossaryWatcher creates a watcher for dir. Call Start to begin.
func NewGlossaryWatcher(dir string, reloader Reloader, opts ...Option) (*GlossaryWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &GlossaryWatcher{
		watcher:  fw,
		dir:      dir,
		reloader: reloader,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the directory in the background, creating it if needed.
func (w *GlossaryWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating glossary directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.running = true
	go w.run(ctx)
	logger.Debug("watcher: watching %s", w.dir)
	return nil
}

// Stop ends the event loop and releases the fsnotify handle.
// It is safe to call more than once.
func (w *GlossaryWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close() //nolint:errcheck // closing an unused watcher
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logger.Warn("watcher: closing: %v", err)
	}
}

// Stats returns a copy of the activity counters.
func (w *GlossaryWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *GlossaryWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordError(err)
		case <-ticker.C:
			w.reloadIfSettled(ctx)
		}
	}
}

func (w *GlossaryWatcher) handleEvent(event fsnotify.Event) {
	if !relevant(event) {
		return
	}
	logger.Debug("watcher: %s %s", event.Op, filepath.Base(event.Name))

	w.mu.Lock()
	w.stats.Events++
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

func (w *GlossaryWatcher) reloadIfSettled(ctx context.Context) {
	w.mu.Lock()
	if w.lastEvent.IsZero() || time.Since(w.lastEvent) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastEvent = time.Time{}
	w.mu.Unlock()

	if err := w.reloader.Load(ctx); err != nil {
		w.recordError(err)
		return
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.stats.LastReload = time.Now()
	w.mu.Unlock()
	logger.Info("watcher: glossary reloaded")
}

func (w *GlossaryWatcher) recordError(err error) {
	logger.Warn("watcher: %v", err)
	w.mu.Lock()
	w.stats.Errors++
	w.stats.LastError = err.Error()
	w.mu.Unlock()
}

// relevant reports whether event can change the loaded glossary.
// Chmod-only events, hidden and temporary files are ignored.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || strings.HasSuffix(name, "~") {
		return false
	}
	_, ok := domain.GlossaryFormatFromName(name)
	return ok
}
