// Package fswatch watches individual files for changes and reports each
// changed file once its burst of events has settled.
package fswatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"chatoutline/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce absorbs the write/rename/chmod burst editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Stats tracks watcher activity for debugging.
type Stats struct {
	Created       int
	Modified      int
	Deleted       int
	Delivered     int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// Watcher watches the parent directories of a fixed set of files, since
// editors and atomic writers replace files by renaming over them.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	targets     map[string]struct{}
	dirs        []string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onChange    func(path string)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher for paths. onChange runs on the watcher goroutine.
func New(paths []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:     fw,
		targets:     make(map[string]struct{}, len(paths)),
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.targets[abs] = struct{}{}
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching. It is non-blocking and idempotent.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Get(logging.CategoryMonitor).Debug("fswatch: watching directory %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryMonitor).Error("fswatch: error closing watcher: %v", err)
	}
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

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
			logging.Get(logging.CategoryMonitor).Error("fswatch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-debounceTicker.C:
			w.processDebouncedEvents()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.targets[name]; !ok {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.Created++
	case "modify":
		w.stats.Modified++
	default:
		w.stats.Deleted++
	}
	w.debounceMap[name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebouncedEvents() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.stats.Delivered += len(settled)
	w.mu.Unlock()

	for _, path := range settled {
		if w.onChange != nil {
			w.onChange(path)
		}
	}
}
