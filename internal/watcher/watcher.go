// Package watcher watches transcript files for appends and triggers
// incremental ingestion with fire-and-forget dispatch, debounced so a
// burst of writes to the same file collapses into one ingest call.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// OnChange is called, debounced, after a watched file has settled.
type OnChange func(path string)

// Watcher wraps an fsnotify.Watcher with per-path debouncing so a fast
// sequence of writes to one transcript triggers a single ingest rather
// than one per write syscall.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange OnChange

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a Watcher. debounce is how long a path must go quiet before
// onChange fires for it; a non-positive value defaults to 500ms.
func New(debounce time.Duration, onChange OnChange) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add starts watching path (a directory or a single file) for changes.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Run consumes fsnotify events until ctx is cancelled or the underlying
// watcher's event channel closes. Errors from fsnotify itself are passed
// to onErr; a nil onErr silently discards them.
func (w *Watcher) Run(ctx context.Context, onErr func(error)) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if onErr != nil {
				onErr(err)
			}
		}
	}
}

// schedule (re)starts the debounce timer for path; only the last reset
// before the timer fires results in a call to onChange.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onChange(path)
	})
}

// Close stops all pending debounce timers and the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.fsw.Close()
}
