package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"chatoutline/internal/fswatch"
	"chatoutline/internal/logging"
)

// Change is the before/after raw value of one settings field.
type Change struct {
	Old any
	New any
}

// Changes maps field keys to their change. Values are untyped as stored;
// consumers type-check each field.
type Changes map[string]Change

// Diff reports every key whose value differs between old and new.
func Diff(old, new map[string]any) Changes {
	out := Changes{}
	for k, nv := range new {
		if ov, ok := old[k]; !ok || !reflect.DeepEqual(ov, nv) {
			out[k] = Change{Old: old[k], New: nv}
		}
	}
	for k, ov := range old {
		if _, ok := new[k]; !ok {
			out[k] = Change{Old: ov}
		}
	}
	return out
}

// Watcher delivers Changes whenever the settings file is rewritten. Only the
// store's own file is watched.
type Watcher struct {
	store *Store
	fw    *fswatch.Watcher
	out   chan Changes

	mu   sync.Mutex
	last map[string]any
}

// NewWatcher snapshots the current file and prepares a watcher for it.
func NewWatcher(store *Store) (*Watcher, error) {
	last, err := store.LoadRaw()
	if err != nil {
		last = map[string]any{}
	}
	w := &Watcher{store: store, out: make(chan Changes, 16), last: last}
	fw, err := fswatch.New([]string{store.Path()}, fswatch.DefaultDebounce, w.reload)
	if err != nil {
		return nil, err
	}
	w.fw = fw
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(w.store.Path()), 0o755); err != nil {
		return err
	}
	return w.fw.Start(ctx)
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.fw.Stop()
}

// Changes is the notification stream.
func (w *Watcher) Changes() <-chan Changes {
	return w.out
}

func (w *Watcher) reload(string) {
	raw, err := w.store.LoadRaw()
	if err != nil {
		logging.Get(logging.CategoryConfig).Debug("settings reload skipped: %v", err)
		return
	}
	w.mu.Lock()
	changes := Diff(w.last, raw)
	w.last = raw
	w.mu.Unlock()
	if len(changes) == 0 {
		return
	}
	select {
	case w.out <- changes:
	default:
		logging.Get(logging.CategoryConfig).Warn("settings change dropped, consumer is behind")
	}
}
