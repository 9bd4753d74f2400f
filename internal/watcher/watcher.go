// Package watcher reloads seed files when they change on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lionrepo/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before onChange runs.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a new file watcher
func New(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logging.Discard(),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger; nil discards.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logging.OrDiscard(logger)
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or the watcher fails to start.
func (w *Watcher) Watch(ctx context.Context) error {
	return WatchMultiple(ctx, []string{w.path}, w.debounce, w.logger, func(string) { w.onChange() })
}

// WatchMultiple watches multiple files and calls onChange when any of them
// change. Calls for one path never overlap.
func WatchMultiple(ctx context.Context, paths []string, debounce time.Duration, logger *slog.Logger, onChange func(path string)) error {
	logger = logging.OrDiscard(logger)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directories so files replaced by editors keep being seen
	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]*sync.Mutex)

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return err
			}
			watchedDirs[dir] = true
		}

		fileSet[absPath] = &sync.Mutex{}
		logger.Info("watching file", "path", absPath)
	}

	debounceTimers := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range debounceTimers {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			mu, watched := fileSet[absPath]
			if !watched {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer, exists := debounceTimers[absPath]; exists {
					timer.Stop()
				}

				debounceTimers[absPath] = time.AfterFunc(debounce, func() {
					mu.Lock()
					defer mu.Unlock()
					if ctx.Err() != nil {
						return
					}
					logger.Info("file changed", "path", absPath)
					onChange(absPath)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
