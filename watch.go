package mdcompose

import (
	"context"
	"crypto/sha256"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for more changes before rebuilding.
const DefaultDebounce = 200 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is the quiet period after a change before rebuilding.
	// Zero means DefaultDebounce.
	Debounce time.Duration

	// OnBuild is called after the initial build and after every rebuild.
	// A failed build is reported here and watching continues.
	OnBuild func(results []Result, err error)
}

// watcher rebuilds pairs when one of their dependencies changes.
type watcher struct {
	composer *Composer
	pairs    []Pair
	opts     WatchOptions
	fsw      *fsnotify.Watcher

	deps    map[string]bool     // absolute dependency paths
	dirs    map[string]bool     // directories currently watched
	hashes  map[string][32]byte // last seen content per dependency
	pending map[string]bool     // changed paths since the last flush
}

// Watch builds pairs once, then rebuilds them whenever a source or included
// file changes, until ctx is cancelled. Only one build runs at a time.
// Watch returns nil on cancellation and an error only if watching itself
// cannot start.
func Watch(ctx context.Context, c *Composer, pairs []Pair, opts WatchOptions) error {
	if len(pairs) == 0 {
		return ErrNoPairs
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnBuild == nil {
		opts.OnBuild = func([]Result, error) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	w := &watcher{
		composer: c,
		pairs:    pairs,
		opts:     opts,
		fsw:      fsw,
		deps:     map[string]bool{},
		dirs:     map[string]bool{},
		hashes:   map[string][32]byte{},
		pending:  map[string]bool{},
	}

	w.rebuild(ctx)
	return w.loop(ctx)
}

// loop collects fsnotify events and flushes them on every debounce tick.
func (w *watcher) loop(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.composer.cfg.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// handleEvent records a change to a dependency.
func (w *watcher) handleEvent(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.deps[path] {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	w.pending[path] = true
	w.composer.cfg.logger.Debug("change detected", "path", path, "op", event.Op.String())
}

// flush rebuilds if a pending path changed content since the last build.
func (w *watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}

	changed := false
	for path := range w.pending {
		if w.contentChanged(path) {
			changed = true
		}
	}
	clear(w.pending)

	if changed {
		w.rebuild(ctx)
	}
}

// contentChanged compares path with its last seen hash and records the new
// one. Removed or unreadable files count as changed.
func (w *watcher) contentChanged(path string) bool {
	content, err := w.composer.cfg.readFile(path)
	if err != nil {
		delete(w.hashes, path)
		return true
	}
	sum := sha256.Sum256(content)
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

// rebuild composes every pair, reports the outcome, and refreshes the set
// of watched files.
func (w *watcher) rebuild(ctx context.Context) {
	results, err := w.composer.Compose(ctx, w.pairs)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	w.opts.OnBuild(results, err)
	w.refresh(ctx)
}

// refresh recomputes dependencies and watches their directories. Pairs whose
// includes fail still watch their source and the include that failed.
func (w *watcher) refresh(ctx context.Context) {
	deps := map[string]bool{}
	for _, pair := range w.pairs {
		files, err := w.composer.Dependencies(ctx, pair)
		if err != nil {
			w.composer.cfg.logger.Debug("dependencies incomplete", "source", pair.Source, "error", err)

			// Watch a missing include so creating it triggers a rebuild.
			var ire *IncludeResolutionError
			if errors.As(err, &ire) {
				if abs, absErr := filepath.Abs(ire.Target); absErr == nil {
					files = append(files, abs)
				}
			}
		}
		for _, f := range files {
			deps[f] = true
		}
	}
	w.deps = deps

	for path := range deps {
		if _, ok := w.hashes[path]; !ok {
			if content, err := w.composer.cfg.readFile(path); err == nil {
				w.hashes[path] = sha256.Sum256(content)
			}
		}

		dir := filepath.Dir(path)
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			w.composer.cfg.logger.Warn("failed to watch directory", "path", dir, "error", err)
			continue
		}
		w.dirs[dir] = true
		w.composer.cfg.logger.Debug("watching directory", "path", dir)
	}
}
