package loader

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changes to local document files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	onChange func(path string)
	debounce time.Duration
	log      *zap.Logger

	// Track last change per file to debounce rapid writes
	mu         sync.Mutex
	lastChange map[string]time.Time
}

// NewWatcher watches paths and calls onChange, at most once per debounce
// window per file, when one is written, created or removed. Directories are
// watched rather than files so editors that replace files atomically are
// still seen.
func NewWatcher(paths []string, debounce time.Duration, log *zap.Logger, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	w := &Watcher{
		watcher:    fw,
		files:      make(map[string]bool),
		onChange:   onChange,
		debounce:   debounce,
		log:        log,
		lastChange: make(map[string]time.Time),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
		log.Info("watching", zap.String("dir", dir))
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.files[name] {
				continue
			}

			w.mu.Lock()
			if time.Since(w.lastChange[name]) < w.debounce {
				w.mu.Unlock()
				continue
			}
			w.lastChange[name] = time.Now()
			w.mu.Unlock()

			w.log.Info("document changed", zap.String("path", name))
			w.onChange(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
