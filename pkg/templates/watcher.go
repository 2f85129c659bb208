package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/subtitler/pkg/stl/parser"
)

// DefaultDebounce is the quiet period after the last file event before a
// reload runs.
const DefaultDebounce = 200 * time.Millisecond

// ErrWatcherRunning is returned by Watch when the watcher is already running.
var ErrWatcherRunning = errors.New("watcher already running")

// Watcher watches a template directory and calls back after bursts of
// changes to template documents.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	closed  bool
}

// NewWatcher creates a watcher for dir. A debounce of 0 uses
// DefaultDebounce.
func NewWatcher(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		logger:   logger.With("component", "templates.watcher"),
		watcher:  fw,
	}, nil
}

// Watch blocks until ctx is done, calling onChange once per burst of
// template document events. onChange errors are logged and watching
// continues.
func (w *Watcher) Watch(ctx context.Context, onChange func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	if w.closed {
		w.mu.Unlock()
		return errors.New("watcher closed")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.addTree(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching templates", "dir", w.dir, "debounce", w.debounce)

	d := newDebouncer(w.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("template watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handleDirectory(event)
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("template file event", "path", event.Name, "op", event.Op.String())
			d.trigger(func() {
				if err := onChange(); err != nil {
					w.logger.Error("template reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("template watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}

// addTree watches dir and every non-hidden subdirectory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// handleDirectory starts watching directories created under the tree.
func (w *Watcher) handleDirectory(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) || hidden(event.Name) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(event.Name); err != nil {
		w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
	}
}

// relevant reports whether an event can change the template set.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if hidden(event.Name) {
		return false
	}
	// A removed or renamed directory can no longer be stat'ed; reload to
	// drop the templates it held.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return parser.IsTemplateFile(event.Name) || filepath.Ext(event.Name) == ""
	}
	return parser.IsTemplateFile(event.Name)
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// debouncer runs the last triggered callback once no trigger has arrived
// for interval.
type debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	cb := d.callback
	stopped := d.stopped
	d.callback = nil
	d.mu.Unlock()

	if cb != nil && !stopped {
		cb()
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.callback = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
