package roulette

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events a single save produces
const DefaultWatchDebounce = 100 * time.Millisecond

// DocumentWatcher reloads the document whenever its file changes on disk.
// The directory is watched rather than the file, since saves replace the file by rename.
type DocumentWatcher struct {
	store    *FileDocumentStore
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   Logger
}

// NewDocumentWatcher starts watching the store's directory
func NewDocumentWatcher(store *FileDocumentStore, debounce time.Duration, logger Logger) (*DocumentWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path := filepath.Clean(store.Path())
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &DocumentWatcher{
		store:    store,
		path:     path,
		debounce: debounce,
		watcher:  w,
		logger:   orDefaultLogger(logger),
	}, nil
}

// Run delivers every reloaded document to onChange until ctx is done or Close is called
func (w *DocumentWatcher) Run(ctx context.Context, onChange func(*Document)) error {
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
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("document watcher error: %v", err)

		case <-fire:
			fire = nil
			doc, err := w.store.Load(ctx)
			if err != nil {
				w.logger.Error("reloading %s failed: %v", w.path, err)
				continue
			}
			w.logger.Debug("document %s reloaded", w.path)
			if onChange != nil {
				onChange(doc)
			}
		}
	}
}

// Close stops watching
func (w *DocumentWatcher) Close() error { return w.watcher.Close() }
