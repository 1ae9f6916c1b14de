// Package watcher reloads seed files when they change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called with the path of a file that changed
type ChangeFunc func(ctx context.Context, path string) error

// Watcher watches files for changes. Directories are watched rather than
// the files themselves so that editors replacing a file are noticed.
type Watcher struct {
	paths    []string
	onChange ChangeFunc
	debounce time.Duration
	logger   *zap.Logger
	ready    chan struct{}
}

// New creates a watcher for the given files
func New(onChange ChangeFunc, logger *zap.Logger, paths ...string) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger.Named("watcher"),
		ready:    make(chan struct{}),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Ready is closed once the watches are in place
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch blocks until ctx is cancelled and then returns nil. onChange runs on
// the calling goroutine; its errors are logged and watching continues.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	files := make(map[string]bool, len(w.paths))
	dirs := make(map[string]bool)
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fsw.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
		files[abs] = true
		w.logger.Info("watching for changes", zap.String("path", abs))
	}
	close(w.ready)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[abs] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			for path := range pending {
				delete(pending, path)
				w.logger.Info("file changed", zap.String("path", path))
				if err := w.onChange(ctx, path); err != nil {
					w.logger.Error("reload failed", zap.String("path", path), zap.Error(err))
				}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
