// Menu handler for application actions
package gui

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"thera/internal/pathutil"
	"thera/internal/session"
)

// MenuHandler builds the main menu and runs its dialogs.
type MenuHandler struct {
	app    *Application
	logger *logrus.Logger

	mainMenu *fyne.MainMenu
	rename   *fyne.MenuItem
	save     *fyne.MenuItem
	enlarge  *fyne.MenuItem
}

func NewMenuHandler(app *Application, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{
		app:    app,
		logger: logger,
	}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	if mh.mainMenu != nil {
		return mh.mainMenu
	}

	mh.rename = fyne.NewMenuItem("Rename...", mh.renameImage)
	mh.save = fyne.NewMenuItem("Save As...", mh.saveImage)
	mh.enlarge = fyne.NewMenuItem("Increase image size...", mh.enlargeImage)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mh.openImage),
		mh.rename,
		mh.save,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			mh.app.requestExit()
		}),
	)

	imageMenu := fyne.NewMenu("Image", mh.enlarge)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	mh.mainMenu = fyne.NewMainMenu(fileMenu, imageMenu, helpMenu)
	mh.Update(session.Snapshot{})
	return mh.mainMenu
}

// Update enables the image actions only while an image is shown.
func (mh *MenuHandler) Update(s session.Snapshot) {
	if mh.mainMenu == nil {
		return
	}
	mh.rename.Disabled = !s.HasImage
	mh.save.Disabled = !s.HasImage
	mh.enlarge.Disabled = !s.HasImage || s.Size.Empty()
	mh.mainMenu.Refresh()
}

func imageExtensions() []string {
	exts := make([]string, 0, 2*len(pathutil.SupportedFormats))
	for _, ext := range pathutil.SupportedFormats {
		exts = append(exts, "."+ext, "."+strings.ToUpper(ext))
	}
	return exts
}

func (mh *MenuHandler) openImage() {
	mh.logger.Debug("GUI: Opening file dialog for image selection")

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mh.app.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		mh.app.OpenPath(path)
	}, mh.app.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter(imageExtensions()))
	mh.startIn(fileDialog.SetLocation)
	fileDialog.Show()
}

// startIn points a file dialog at the current image's directory.
func (mh *MenuHandler) startIn(setLocation func(fyne.ListableURI)) {
	snap := mh.app.ctrl.Snapshot()
	if !snap.HasImage {
		return
	}
	dir, err := storage.ListerForURI(storage.NewFileURI(filepath.Dir(snap.Path)))
	if err != nil {
		mh.logger.WithError(err).Debug("GUI: Cannot list current directory")
		return
	}
	setLocation(dir)
}

func (mh *MenuHandler) renameImage() {
	snap := mh.app.ctrl.Snapshot()
	if !snap.HasImage {
		return
	}

	entry := widget.NewEntry()
	entry.SetText(pathutil.Stem(snap.Path))

	dialog.ShowForm("Rename", "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("New name", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			mh.app.ctrl.Rename(entry.Text)
		}, mh.app.window)
}

func (mh *MenuHandler) saveImage() {
	snap := mh.app.ctrl.Snapshot()
	if !snap.HasImage {
		return
	}

	picker := newDestinationPicker(mh.app.window, filepath.Dir(snap.Path), filepath.Base(snap.Path))
	dialog.ShowForm("Save As", "Save", "Cancel", picker.items(), func(ok bool) {
		if !ok {
			return
		}
		path, err := picker.path()
		if err != nil {
			dialog.ShowError(err, mh.app.window)
			return
		}
		mh.confirmOverwrite(path, snap.Path, func() {
			mh.app.ctrl.Save(path)
		})
	}, mh.app.window)
}

// confirmOverwrite runs write at once unless path is another existing file,
// in which case the user is asked first.
func (mh *MenuHandler) confirmOverwrite(path, current string, write func()) {
	if path == current || !fileExists(path) {
		write()
		return
	}
	dialog.ShowConfirm("Replace file",
		fmt.Sprintf("%s already exists. Do you want to replace it?", filepath.Base(path)),
		func(ok bool) {
			if ok {
				write()
			}
		}, mh.app.window)
}

func (mh *MenuHandler) enlargeImage() {
	snap := mh.app.ctrl.Snapshot()
	if !snap.HasImage || snap.Size.Empty() {
		return
	}
	NewEnlargeDialog(mh, snap).Show()
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel(AppTitle),
		widget.NewSeparator(),
		widget.NewLabel("View the images of a folder one at a time and"),
		widget.NewLabel("enlarge them by interpolation or super resolution."),
		widget.NewSeparator(),
		widget.NewLabel(fmt.Sprintf("Supported formats: %s", strings.Join(pathutil.SupportedFormats, ", "))),
		widget.NewLabel("Built with Go, Fyne and OpenCV"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.app.window)
	aboutDialog.Resize(fyne.NewSize(400, 240))
	aboutDialog.Show()
}
