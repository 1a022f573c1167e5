package gui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

var errNoFileName = errors.New("please enter a file name")

// destinationPicker is a folder and file name pair. It never opens the
// chosen file, so picking the image being viewed cannot truncate it.
type destinationPicker struct {
	window fyne.Window
	dir    *widget.Entry
	name   *widget.Entry
	browse *widget.Button
}

func newDestinationPicker(window fyne.Window, dir, name string) *destinationPicker {
	p := &destinationPicker{
		window: window,
		dir:    widget.NewEntry(),
		name:   widget.NewEntry(),
	}
	p.dir.SetText(dir)
	p.name.SetText(name)
	p.browse = widget.NewButton("Browse...", p.chooseFolder)
	return p
}

func (p *destinationPicker) chooseFolder() {
	folderDialog := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, p.window)
			return
		}
		if uri == nil {
			return
		}
		p.dir.SetText(uri.Path())
	}, p.window)

	if lister, err := storage.ListerForURI(storage.NewFileURI(p.dir.Text)); err == nil {
		folderDialog.SetLocation(lister)
	}
	folderDialog.Show()
}

func (p *destinationPicker) items() []*widget.FormItem {
	return []*widget.FormItem{
		widget.NewFormItem("Folder", container.NewBorder(nil, nil, nil, p.browse, p.dir)),
		widget.NewFormItem("File name", p.name),
	}
}

// path returns the absolute destination.
func (p *destinationPicker) path() (string, error) {
	return joinDestination(p.dir.Text, p.name.Text)
}

func joinDestination(dir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errNoFileName
	}
	return filepath.Abs(filepath.Join(strings.TrimSpace(dir), name))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
