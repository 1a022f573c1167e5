// Viewing session state machine: current image, navigation, file operations
// and background enlargement
package session

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"thera/internal/apperr"
	"thera/internal/collection"
	"thera/internal/imageio/preview"
	"thera/internal/pathutil"
	"thera/internal/runner"
	"thera/internal/upscale"
)

// State of the viewing session.
type State int

const (
	Empty State = iota
	Viewing
	Enlarging
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Viewing:
		return "Viewing"
	case Enlarging:
		return "Enlarging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Texts shown by the presentation layer.
const (
	StatusEnlarging   = "Please wait, enlarging image..."
	StatusFinished    = "Finished"
	StatusFailed      = "Enlargement failed"
	StatusReady       = "Ready"
	CorruptedMessage  = "This image is corrupted"
	ExitQuestion      = "Are you sure you want to exit?"
	FinishedHintMs    = 5000
	PersistentHintMs  = 0
	successMessageFmt = "Image has been successfully enlarged and save to:\n%s"
)

// SuccessMessage is the notification text for a finished enlargement.
func SuccessMessage(destination string) string {
	return fmt.Sprintf(successMessageFmt, destination)
}

// Snapshot is a read-only view of the session used to enable menu actions.
type Snapshot struct {
	State    State
	Path     string
	Index    int // 1-based, 0 when nothing is viewed
	Total    int
	Size     upscale.Size
	InFlight int
	HasImage bool
}

type event func(Presenter)

// Controller owns the image collection and the current image. Commands are
// serialized; only enlargement jobs run in the background.
type Controller struct {
	logger    *logrus.Logger
	presenter Presenter
	decoder   Decoder
	enlarger  Enlarger
	pool      *runner.Pool[upscale.Report]
	watcher   DirectoryWatcher

	mu            sync.Mutex
	emitMu        sync.Mutex
	coll          *collection.Collection
	state         State
	displayed     image.Image
	size          upscale.Size
	viewport      upscale.Size
	inFlight      int
	exitConfirmed bool
	closing       bool

	jobs sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithSlots sets how many enlargements may run at once.
func WithSlots(n int) Option {
	return func(c *Controller) {
		c.pool = runner.NewPool[upscale.Report](n, c.logger)
	}
}

// WithWatcher makes the controller retarget w whenever the tracked
// directory changes.
func WithWatcher(w DirectoryWatcher) Option {
	return func(c *Controller) {
		c.watcher = w
	}
}

func New(presenter Presenter, decoder Decoder, enlarger Enlarger, logger *logrus.Logger, opts ...Option) *Controller {
	c := &Controller{
		logger:    logger,
		presenter: presenter,
		decoder:   decoder,
		enlarger:  enlarger,
		coll:      collection.New(),
		state:     Empty,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = runner.NewPool[upscale.Report](runner.DefaultSlots, logger)
	}
	return c
}

func (c *Controller) emit(events []event) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	for _, e := range events {
		e(c.presenter)
	}
}

// commit releases the controller lock and delivers events in the order
// their state changes were made.
func (c *Controller) commit(events []event) {
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()
	for _, e := range events {
		e(c.presenter)
	}
}

// fail logs err and queues the matching ErrorOccurred event.
func (c *Controller) fail(events []event, op string, err error) []event {
	kind := apperr.KindOf(err)
	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"kind":      kind.String(),
	}).WithError(err).Warn("SESSION: Operation failed")

	msg := err.Error()
	return append(events, func(p Presenter) { p.ErrorOccurred(kind, msg) })
}

// Open shows path and tracks its directory.
func (c *Controller) Open(path string) error {
	c.mu.Lock()
	events, err := c.open(path)
	c.commit(events)
	return err
}

func (c *Controller) open(path string) ([]event, error) {
	var events []event

	abs, err := pathutil.Normalize(path)
	if err != nil {
		err = apperr.Wrap(apperr.PathNotInCollection, err, "resolve %s", path)
		return c.fail(events, "open", err), err
	}
	if !pathutil.IsSupported(abs) {
		err = apperr.Wrap(apperr.UnsupportedFormat, nil, "%s", filepath.Base(abs))
		return c.fail(events, "open", err), err
	}

	dir := filepath.Dir(abs)
	next := c.coll
	switched := dir != c.coll.Dir()
	if switched || !c.coll.Contains(abs) {
		next, err = collection.Scan(dir)
		if err != nil {
			return c.fail(events, "open", err), err
		}
	}
	// A fresh scan is only adopted once the path is known to be in it.
	if err := next.SetCurrent(abs); err != nil {
		return c.fail(events, "open", err), err
	}
	c.coll = next

	if switched && c.watcher != nil {
		if err := c.watcher.Watch(dir); err != nil {
			c.logger.WithError(err).WithField("dir", dir).Warn("SESSION: Directory watch unavailable")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"path":  abs,
		"index": c.coll.Index(),
		"total": c.coll.Len(),
	}).Info("SESSION: Image opened")

	if c.state == Empty {
		c.state = Viewing
	}
	return c.display(events), nil
}

// display decodes the current entry and queues the display and title events.
func (c *Controller) display(events []event) []event {
	path, ok := c.coll.Current()
	if !ok {
		return events
	}

	img, err := c.decoder.Decode(path)
	if err == nil && img != nil && !img.Bounds().Empty() {
		c.displayed = img
		c.size = upscale.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
		shown := preview.Fit(img, c.viewport)
		events = append(events, func(p Presenter) { p.ImageReady(shown) })
	} else {
		c.logger.WithError(err).WithField("path", path).Warn("SESSION: Image cannot be displayed")
		c.displayed = nil
		c.size = upscale.Size{}
		events = append(events, func(p Presenter) { p.ImageCorrupted(path) })
	}

	return c.title(events)
}

func (c *Controller) title(events []event) []event {
	path, ok := c.coll.Current()
	if !ok {
		return append(events, func(p Presenter) { p.TitleChanged("", 0, 0) })
	}
	name, index, total := filepath.Base(path), c.coll.Index()+1, c.coll.Len()
	return append(events, func(p Presenter) { p.TitleChanged(name, index, total) })
}

// Navigate shows the next or previous image, wrapping at both ends. It does
// nothing when no image is loaded.
func (c *Controller) Navigate(direction collection.Direction) error {
	c.mu.Lock()
	var events []event
	if _, ok := c.coll.Current(); ok {
		if _, err := c.coll.Advance(direction); err == nil {
			events = c.display(events)
		}
	}
	c.commit(events)
	return nil
}

// Rename renames the current file in place, keeping its extension. The
// displayed image is not reloaded.
func (c *Controller) Rename(name string) error {
	c.mu.Lock()
	events, err := c.rename(name)
	c.commit(events)
	return err
}

func (c *Controller) rename(name string) ([]event, error) {
	var events []event

	current, ok := c.coll.Current()
	if !ok {
		err := apperr.Wrap(apperr.PathNotInCollection, nil, "no image is being viewed")
		return c.fail(events, "rename", err), err
	}

	target, err := c.coll.RenameCurrent(name)
	if err != nil {
		return c.fail(events, "rename", err), err
	}
	if target == current {
		return events, nil
	}

	if _, err := os.Lstat(target); err == nil {
		err = apperr.Wrap(apperr.RenameFailed, nil, "%s already exists", filepath.Base(target))
		return c.fail(events, "rename", err), err
	} else if !errors.Is(err, os.ErrNotExist) {
		err = apperr.Wrap(apperr.RenameFailed, err, "check %s", filepath.Base(target))
		return c.fail(events, "rename", err), err
	}

	if err := os.Rename(current, target); err != nil {
		err = apperr.Wrap(apperr.RenameFailed, err, "rename %s", filepath.Base(current))
		return c.fail(events, "rename", err), err
	}
	if err := c.coll.ReplaceCurrent(target); err != nil {
		return c.fail(events, "rename", err), err
	}

	c.logger.WithFields(logrus.Fields{
		"from": current,
		"to":   target,
	}).Info("SESSION: Image renamed")

	return c.title(events), nil
}

// Save copies the current file to destination. A new file in the tracked
// directory joins the collection; the current image stays the same.
func (c *Controller) Save(destination string) error {
	c.mu.Lock()
	events, err := c.save(destination)
	c.commit(events)
	return err
}

func (c *Controller) save(destination string) ([]event, error) {
	var events []event

	current, ok := c.coll.Current()
	if !ok {
		err := apperr.Wrap(apperr.PathNotInCollection, nil, "no image is being viewed")
		return c.fail(events, "save", err), err
	}

	dest, err := pathutil.Normalize(destination)
	if err != nil {
		err = apperr.Wrap(apperr.WriteFailure, err, "resolve %s", destination)
		return c.fail(events, "save", err), err
	}
	if dest == current {
		return events, nil
	}
	same, err := sameFile(current, dest)
	if err != nil {
		err = apperr.Wrap(apperr.WriteFailure, err, "check %s", dest)
		return c.fail(events, "save", err), err
	}
	if same {
		c.logger.WithField("destination", dest).Debug("SESSION: Destination is the current file")
		return events, nil
	}

	if err := copyFile(current, dest); err != nil {
		return c.fail(events, "save", err), err
	}

	c.logger.WithFields(logrus.Fields{
		"source":      current,
		"destination": dest,
	}).Info("SESSION: Image saved")

	if c.track(dest) {
		events = c.title(events)
	}
	return events, nil
}

// track inserts path when it is a displayable file in the tracked directory.
func (c *Controller) track(path string) bool {
	if c.coll.Dir() == "" || filepath.Dir(path) != c.coll.Dir() {
		return false
	}
	if !pathutil.IsSupported(path) {
		return false
	}
	return c.coll.InsertAndSort(path)
}

// sameFile reports whether a and b name one file, including through
// symlinks, hard links and case-insensitive names. A missing b is not an error.
func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// copyFile writes src to a temporary file next to dst and renames it into
// place, so a failed copy leaves any existing dst untouched.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "open %s", filepath.Base(src))
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "stat %s", filepath.Base(src))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "create %s", dst)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "copy to %s", dst)
	}
	if err = tmp.Chmod(info.Mode().Perm()); err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "chmod %s", dst)
	}
	if err = tmp.Sync(); err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "sync %s", dst)
	}
	if err = tmp.Close(); err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "close %s", dst)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return apperr.Wrap(apperr.WriteFailure, err, "replace %s", dst)
	}
	return nil
}

// Resize redisplays the current image fitted to viewport.
func (c *Controller) Resize(viewport upscale.Size) {
	c.mu.Lock()
	var events []event
	if viewport != c.viewport {
		c.viewport = viewport
		if img := c.displayed; img != nil {
			shown := preview.Fit(img, viewport)
			events = append(events, func(p Presenter) { p.ImageReady(shown) })
		}
	}
	c.commit(events)
}

// Refresh rescans the tracked directory. The current image stays selected
// while it exists; otherwise its nearest neighbour is shown.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	events, err := c.refresh()
	c.commit(events)
	return err
}

func (c *Controller) refresh() ([]event, error) {
	var events []event

	dir := c.coll.Dir()
	if dir == "" {
		return events, nil
	}

	next, err := collection.Scan(dir)
	if err != nil {
		return c.fail(events, "refresh", err), err
	}

	current, hadCurrent := c.coll.Current()
	if hadCurrent && next.Contains(current) {
		next.SetCurrent(current)
		c.coll = next
		return c.title(events), nil
	}

	previous := c.coll.Index()
	c.coll = next
	if !hadCurrent {
		return events, nil
	}

	c.logger.WithField("path", current).Info("SESSION: Current image disappeared")

	if next.Len() == 0 {
		c.displayed = nil
		c.size = upscale.Size{}
		if c.state == Viewing {
			c.state = Empty
		}
		return c.title(events), nil
	}

	entries := next.Entries()
	next.SetCurrent(entries[min(previous, len(entries)-1)])
	return c.display(events), nil
}

// RequestExit asks confirm whether to exit and calls quit when the answer
// is yes. Once confirmed, later requests quit without asking.
func (c *Controller) RequestExit(confirm Confirmer, quit func()) {
	c.mu.Lock()
	confirmed := c.exitConfirmed
	c.mu.Unlock()

	if confirmed {
		quit()
		return
	}

	confirm(ExitQuestion, func(ok bool) {
		if !ok {
			c.logger.Debug("SESSION: Exit cancelled")
			return
		}
		c.mu.Lock()
		c.exitConfirmed = true
		c.mu.Unlock()

		c.logger.Info("SESSION: Exit confirmed")
		quit()
	})
}

// ExitConfirmed reports whether the user already agreed to exit.
func (c *Controller) ExitConfirmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitConfirmed
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, ok := c.coll.Current()
	s := Snapshot{
		State:    c.state,
		Total:    c.coll.Len(),
		Size:     c.size,
		InFlight: c.inFlight,
		HasImage: ok,
	}
	if ok {
		s.Path = path
		s.Index = c.coll.Index() + 1
	}
	return s
}

// Entries returns the tracked directory's images in display order.
func (c *Controller) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coll.Entries()
}

// Shutdown refuses new enlargements and waits for queued ones and their
// notifications.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	c.pool.Close()
	c.jobs.Wait()
}
