// Main window: shows session events and forwards user commands
package gui

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"thera/internal/apperr"
	"thera/internal/collection"
	"thera/internal/session"
	"thera/internal/upscale"
)

const AppTitle = "Thera"

// Application is the Fyne presentation layer. It implements
// session.Presenter; events may arrive from any goroutine and are applied
// on the UI thread.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Logger

	ctrl *session.Controller

	view        *ImageView
	status      *widget.Label
	menuHandler *MenuHandler

	statusMu  sync.Mutex
	statusGen int
}

func NewApplication(app fyne.App, logger *logrus.Logger, size fyne.Size) *Application {
	window := app.NewWindow(AppTitle)
	window.Resize(size)
	window.CenterOnScreen()

	a := &Application{
		app:    app,
		window: window,
		logger: logger,
	}

	a.view = NewImageView(logger)
	a.status = widget.NewLabel(session.StatusReady)
	a.menuHandler = NewMenuHandler(a, logger)

	a.setupLayout()
	return a
}

// Attach connects the window to the session it displays.
func (a *Application) Attach(ctrl *session.Controller) {
	a.ctrl = ctrl

	a.view.SetResizeCallback(func(size fyne.Size) {
		a.ctrl.Resize(a.pixels(size))
	})
	a.window.Canvas().SetOnTypedKey(a.onKey)
	a.window.SetCloseIntercept(a.requestExit)
	a.menuHandler.Update(ctrl.Snapshot())
}

func (a *Application) setupLayout() {
	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(container.NewBorder(
		nil,
		container.NewVBox(widget.NewSeparator(), a.status),
		nil,
		nil,
		a.view,
	))
}

// pixels converts a canvas size to device pixels.
func (a *Application) pixels(size fyne.Size) upscale.Size {
	scale := a.window.Canvas().Scale()
	return upscale.Size{
		Width:  int(math.Round(float64(size.Width * scale))),
		Height: int(math.Round(float64(size.Height * scale))),
	}
}

func (a *Application) onKey(ev *fyne.KeyEvent) {
	direction, ok := keyDirection(ev.Name)
	if !ok {
		return
	}
	a.ctrl.Navigate(direction)
}

func keyDirection(key fyne.KeyName) (collection.Direction, bool) {
	switch key {
	case fyne.KeyDown, fyne.KeyRight, fyne.KeyPageDown:
		return collection.Forward, true
	case fyne.KeyUp, fyne.KeyLeft, fyne.KeyPageUp:
		return collection.Backward, true
	default:
		return collection.Forward, false
	}
}

func (a *Application) requestExit() {
	a.ctrl.RequestExit(func(question string, reply func(bool)) {
		dialog.ShowConfirm("Exit", question, reply, a.window)
	}, a.app.Quit)
}

// OpenPath opens path as if it had been chosen in the file dialog.
func (a *Application) OpenPath(path string) {
	a.ctrl.Open(path)
}

func (a *Application) ShowAndRun() {
	a.logger.Info("GUI: Showing main window")
	a.window.ShowAndRun()
}

func (a *Application) ImageReady(img image.Image) {
	fyne.Do(func() {
		a.view.ShowImage(img)
	})
}

func (a *Application) ImageCorrupted(path string) {
	a.logger.WithField("path", path).Debug("GUI: Showing corrupted notice")
	fyne.Do(func() {
		a.view.ShowCorrupted()
	})
}

func (a *Application) TitleChanged(name string, index, total int) {
	title := windowTitle(name, index, total)
	fyne.Do(func() {
		a.window.SetTitle(title)
		if total == 0 {
			a.view.Clear()
		}
		a.menuHandler.Update(a.ctrl.Snapshot())
	})
}

func windowTitle(name string, index, total int) string {
	if total == 0 || name == "" {
		return AppTitle
	}
	return fmt.Sprintf("%s    %d / %d", name, index, total)
}

// StatusChanged shows text; a positive hint reverts to the ready text after
// that many milliseconds unless newer text replaced it.
func (a *Application) StatusChanged(text string, durationHintMs int) {
	a.statusMu.Lock()
	a.statusGen++
	gen := a.statusGen
	a.statusMu.Unlock()

	fyne.Do(func() {
		a.status.SetText(text)
	})

	if durationHintMs <= 0 {
		return
	}
	time.AfterFunc(time.Duration(durationHintMs)*time.Millisecond, func() {
		a.statusMu.Lock()
		current := a.statusGen == gen
		a.statusMu.Unlock()
		if current {
			fyne.Do(func() {
				a.status.SetText(session.StatusReady)
			})
		}
	})
}

func (a *Application) EnlargementStarted(req upscale.Request) {
	a.logger.WithFields(logrus.Fields{
		"method":      req.Method.Name(),
		"target":      req.Target.String(),
		"destination": req.DestinationPath,
	}).Debug("GUI: Enlargement started")

	fyne.Do(func() {
		a.menuHandler.Update(a.ctrl.Snapshot())
	})
}

func (a *Application) EnlargementFinished(destination string) {
	fyne.Do(func() {
		a.menuHandler.Update(a.ctrl.Snapshot())
		dialog.ShowInformation("Increase image size", session.SuccessMessage(destination), a.window)
	})
}

func (a *Application) ErrorOccurred(kind apperr.Kind, message string) {
	a.logger.WithField("kind", kind.String()).Debug("GUI: Showing error")

	fyne.Do(func() {
		dialog.ShowError(errors.New(errorText(kind, message)), a.window)
	})
}

func errorText(kind apperr.Kind, message string) string {
	switch kind {
	case apperr.InvalidName:
		return "Please enter a valid file name.\n" + message
	case apperr.RenameFailed:
		return "The file could not be renamed.\n" + message
	case apperr.WriteFailure:
		return "The image could not be saved.\n" + message
	case apperr.InferenceFailure:
		return "The image could not be enlarged.\n" + message
	case apperr.UnsupportedFormat:
		return "This file format is not supported.\n" + message
	case apperr.DirectoryUnreadable:
		return "The folder could not be read.\n" + message
	default:
		return message
	}
}
