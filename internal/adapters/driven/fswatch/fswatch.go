// Package fswatch runs a debounced callback when files in a directory change.
package fswatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arah-ai/arah/internal/logger"
)

// DefaultDebounce collapses bursts of editor writes into one callback.
const DefaultDebounce = 300 * time.Millisecond

// Handler receives the set of changed paths after the debounce window.
type Handler func(paths []string)

// Options configures Watch.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Match filters paths. Nil accepts every path.
	Match func(path string) bool
}

// Watch calls fn for writes and creates under dir until ctx is done.
// It returns once the watcher is registered; the loop runs in the
// background and the returned channel closes when it has stopped.
func Watch(ctx context.Context, dir string, opts Options, fn Handler) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	done := make(chan struct{})
	go loop(ctx, w, opts, fn, done)
	logger.Debug("watching %s", dir)
	return done, nil
}

func loop(ctx context.Context, w *fsnotify.Watcher, opts Options, fn Handler, done chan struct{}) {
	var (
		mu      sync.Mutex
		pending = map[string]struct{}{}
		timer   *time.Timer
		wg      sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
		w.Close()
		close(done)
	}()

	flush := func() {
		defer wg.Done()
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = map[string]struct{}{}
		timer = nil
		mu.Unlock()
		if len(paths) > 0 && ctx.Err() == nil {
			fn(paths)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(event.Name)
			if opts.Match != nil && !opts.Match(path) {
				continue
			}

			mu.Lock()
			pending[path] = struct{}{}
			if timer == nil {
				wg.Add(1)
				timer = time.AfterFunc(opts.Debounce, flush)
			} else if timer.Stop() {
				timer.Reset(opts.Debounce)
			}
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher: %v", err)
		}
	}
}
