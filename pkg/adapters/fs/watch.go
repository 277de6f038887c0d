package fs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/ld/ainote/pkg/core"
)

// Subscribe delivers the owner's notes now and after every change on disk,
// whether made through this repository or by another process. The first
// subscription starts the directory watcher; Close stops it.
func (r *Repository) Subscribe(ctx context.Context, ownerID string) (<-chan core.Snapshot, error) {
	if err := checkSegment("owner", ownerID); err != nil {
		return nil, err
	}
	if err := r.ensureWatcher(); err != nil {
		return nil, err
	}
	return r.hub.Subscribe(ctx, ownerID), nil
}

// Subscribers returns the number of live subscriptions.
func (r *Repository) Subscribers() int {
	return r.hub.Len()
}

func (r *Repository) ensureWatcher() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchCancel != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := r.recursiveAdd(watcher, filepath.Join(r.Path, usersDir)); err != nil {
		_ = watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.watchCancel, r.watchDone = cancel, done
	r.watcherActive = true

	w := &watchLoop{
		repo:      r,
		watcher:   watcher,
		debouncer: newDebouncer(r.config.Debounce),
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(done)
		defer r.clearWatcher(done)
		return w.run(ctx)
	}, lifecycle.WithErrorHandler(r.reportError))
	return nil
}

// clearWatcher forgets the loop identified by done so a later Subscribe can
// start a fresh one. It is a no-op once Close or a newer loop took over.
func (r *Repository) clearWatcher(done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchDone != done {
		return
	}
	r.watchCancel()
	r.watchCancel, r.watchDone = nil, nil
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("watcher failed", "error", err)
}

// recursiveAdd watches dir and every directory below it.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// ownerOf maps an absolute event path to the owner whose notes it touches.
// ok is false for paths outside users/<owner>/.
func (r *Repository) ownerOf(name string) (owner string, ok bool) {
	rel, err := filepath.Rel(filepath.Join(r.Path, usersDir), name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	owner, _, _ = strings.Cut(filepath.ToSlash(rel), "/")
	return owner, owner != ""
}

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

func (r *Repository) recordEvent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.lastEvent = &now
}

type watchLoop struct {
	repo      *Repository
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

func (w *watchLoop) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()
	defer w.debouncer.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
			if w.repo.config.ErrorHandler != nil {
				w.repo.config.ErrorHandler(wErr)
			}
		}
	}
}

func (w *watchLoop) handle(event fsnotify.Event) {
	logger := w.repo.config.Logger
	logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, TempFilePrefix) || strings.HasPrefix(base, ".") {
		return
	}

	// New owner or notes directories must be watched too.
	if event.Has(fsnotify.Create) {
		if err := w.repo.recursiveAdd(w.watcher, event.Name); err != nil {
			logger.Debug("not a directory or gone", "path", event.Name, "error", err)
		}
	}

	owner, ok := w.repo.ownerOf(event.Name)
	if !ok {
		return
	}
	w.repo.recordEvent()
	w.debouncer.add(owner, func() { w.repo.hub.Notify(owner) })
}

// debouncer coalesces calls per key: fn runs once, wait after the last add.
type debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newDebouncer(wait time.Duration) *debouncer {
	return &debouncer{wait: wait, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		delete(d.timers, key)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
