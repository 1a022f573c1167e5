// Follows the tracked image directory and asks for a rescan when its
// listing changes
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"thera/internal/pathutil"
)

// DefaultDebounce coalesces bursts such as a copy creating then filling a file.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches one directory at a time. Calling Watch with another
// directory moves the watch.
type Watcher struct {
	logger   *logrus.Logger
	fs       *fsnotify.Watcher
	onChange func()
	debounce time.Duration

	mu      sync.Mutex
	dir     string
	timer   *time.Timer
	running bool
	stopped bool

	done chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a watcher that calls onChange once per settled burst of
// changes to displayable files.
func New(onChange func(), logger *logrus.Logger, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		logger:   logger,
		fs:       fsw,
		onChange: onChange,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch moves the watch to dir.
func (w *Watcher) Watch(dir string) error {
	abs, err := pathutil.Normalize(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errors.New("watcher is stopped")
	}
	if abs == w.dir {
		return nil
	}
	if w.dir != "" {
		if err := w.fs.Remove(w.dir); err != nil {
			w.logger.WithError(err).WithField("dir", w.dir).Debug("WATCH: Failed to remove previous watch")
		}
	}
	if err := w.fs.Add(abs); err != nil {
		w.dir = ""
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	w.dir = abs

	w.logger.WithField("dir", abs).Info("WATCH: Watching directory")
	return nil
}

// Dir returns the watched directory or "".
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Start processes filesystem events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("WATCH: fsnotify error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !relevant(event) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || filepath.Dir(event.Name) != w.dir {
		return
	}

	w.logger.WithFields(logrus.Fields{
		"path": event.Name,
		"op":   event.Op.String(),
	}).Debug("WATCH: Directory changed")

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	stopped := w.stopped
	w.timer = nil
	w.mu.Unlock()

	if !stopped {
		w.onChange()
	}
}

// relevant keeps listing changes of displayable files. Content writes do not
// change the listing.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return pathutil.IsSupported(event.Name)
}

// Stop ends event processing and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	running := w.running
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.fs.Close()
	if running {
		<-w.done
	}
	return err
}
