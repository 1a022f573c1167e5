// Dialog collecting method, scale and destination for an enlargement
package gui

import (
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"thera/internal/pathutil"
	"thera/internal/session"
	"thera/internal/upscale"
)

// Method labels in the order the dialog offers them.
var methodLabels = []string{"Bilinear", "Cubic", "Lanczos", "Super Resolution"}

func multiplierLabels() []string {
	labels := make([]string, len(upscale.Multipliers))
	for i, m := range upscale.Multipliers {
		labels[i] = fmt.Sprintf("X%d", m)
	}
	return labels
}

// suggestedName proposes "<stem>_x<m>.<ext>" for the enlarged copy. Formats
// that cannot be written fall back to png.
func suggestedName(source string, multiplier int) string {
	ext := pathutil.Extension(source)
	if !pathutil.IsEncodable(source) {
		ext = "png"
	}
	return fmt.Sprintf("%s_x%d.%s", pathutil.Stem(source), multiplier, ext)
}

// EnlargeDialog shows the projected size for the chosen scale and submits
// the enlargement on confirm.
type EnlargeDialog struct {
	menu *MenuHandler
	snap session.Snapshot

	method      *widget.RadioGroup
	scale       *widget.Select
	initialSize *widget.Label
	finalSize   *widget.Label
	destination *destinationPicker
}

func NewEnlargeDialog(menu *MenuHandler, snap session.Snapshot) *EnlargeDialog {
	d := &EnlargeDialog{
		menu:        menu,
		snap:        snap,
		initialSize: widget.NewLabel(""),
		finalSize:   widget.NewLabel(""),
	}

	d.method = widget.NewRadioGroup(methodLabels, nil)
	d.method.Required = true
	d.method.SetSelected(methodLabels[0])

	dir := filepath.Dir(snap.Path)
	d.destination = newDestinationPicker(menu.app.window, dir, suggestedName(snap.Path, upscale.Multipliers[0]))

	d.scale = widget.NewSelect(multiplierLabels(), d.onScaleChanged)
	d.scale.SetSelected(multiplierLabels()[0])

	return d
}

func (d *EnlargeDialog) multiplier() int {
	m, err := upscale.ParseMultiplier(d.scale.Selected)
	if err != nil {
		return upscale.Multipliers[0]
	}
	return m
}

func (d *EnlargeDialog) onScaleChanged(string) {
	m := d.multiplier()

	from, to, err := d.menu.app.ctrl.ProjectedSize(m)
	if err != nil {
		d.menu.logger.WithError(err).Debug("GUI: No projected size")
		return
	}
	d.initialSize.SetText(from.String())
	d.finalSize.SetText(to.String())
	d.destination.name.SetText(suggestedName(d.snap.Path, m))
}

func (d *EnlargeDialog) Show() {
	items := []*widget.FormItem{
		widget.NewFormItem("Method", d.method),
		widget.NewFormItem("Scale", d.scale),
		widget.NewFormItem("Initial size", d.initialSize),
		widget.NewFormItem("Final size", d.finalSize),
	}
	items = append(items, d.destination.items()...)

	form := dialog.NewForm("Increase image size", "Enlarge", "Cancel", items, d.submit, d.menu.app.window)
	form.Resize(fyne.NewSize(480, 0))
	form.Show()
}

func (d *EnlargeDialog) submit(ok bool) {
	if !ok {
		return
	}

	path, err := d.destination.path()
	if err != nil {
		dialog.ShowError(err, d.menu.app.window)
		return
	}

	method, multiplier := d.method.Selected, d.multiplier()
	// Replacing the source image is asked like any other existing file.
	d.menu.confirmOverwrite(path, "", func() {
		d.menu.app.ctrl.EnlargeNamed(method, multiplier, path)
	})
}
