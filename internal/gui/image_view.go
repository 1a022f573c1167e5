// Image display widget that reports its viewport size
package gui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"thera/internal/session"
)

// ImageView shows the current image, or a notice when it cannot be decoded.
type ImageView struct {
	widget.BaseWidget

	logger *logrus.Logger

	image  *canvas.Image
	notice *canvas.Text

	lastSize fyne.Size
	onResize func(fyne.Size)
}

func NewImageView(logger *logrus.Logger) *ImageView {
	iv := &ImageView{logger: logger}

	iv.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	iv.image.FillMode = canvas.ImageFillContain
	iv.image.ScaleMode = canvas.ImageScaleSmooth
	iv.image.Hide()

	iv.notice = canvas.NewText(session.CorruptedMessage, theme.Color(theme.ColorNameError))
	iv.notice.Alignment = fyne.TextAlignCenter
	iv.notice.TextStyle = fyne.TextStyle{Bold: true}
	iv.notice.Hide()

	iv.ExtendBaseWidget(iv)
	return iv
}

// SetResizeCallback registers fn to be called with the new size whenever
// the view is laid out at a different size. fn runs off the UI goroutine.
func (iv *ImageView) SetResizeCallback(fn func(fyne.Size)) {
	iv.onResize = fn
}

// ShowImage replaces the displayed image.
func (iv *ImageView) ShowImage(img image.Image) {
	if img == nil {
		return
	}
	iv.logger.WithFields(logrus.Fields{
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("GUI: Showing image")

	iv.notice.Hide()
	iv.image.Image = img
	iv.image.Show()
	iv.image.Refresh()
}

// ShowCorrupted hides the image and shows the corrupted notice.
func (iv *ImageView) ShowCorrupted() {
	iv.image.Hide()
	iv.notice.Show()
	iv.notice.Refresh()
}

// Clear blanks the view.
func (iv *ImageView) Clear() {
	iv.image.Hide()
	iv.notice.Hide()
}

func (iv *ImageView) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.Transparent)
	return &imageViewRenderer{view: iv, background: background}
}

func (iv *ImageView) resized(size fyne.Size) {
	if size == iv.lastSize {
		return
	}
	iv.lastSize = size
	if iv.onResize != nil {
		go iv.onResize(size)
	}
}

type imageViewRenderer struct {
	view       *ImageView
	background *canvas.Rectangle
}

func (r *imageViewRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.view.image.Resize(size)
	r.view.image.Move(fyne.NewPos(0, 0))

	textSize := r.view.notice.MinSize()
	r.view.notice.Resize(fyne.NewSize(size.Width, textSize.Height))
	r.view.notice.Move(fyne.NewPos(0, (size.Height-textSize.Height)/2))

	r.view.resized(size)
}

func (r *imageViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

func (r *imageViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.view.image, r.view.notice}
}

func (r *imageViewRenderer) Refresh() {
	r.background.Refresh()
	r.view.image.Refresh()
	r.view.notice.Refresh()
}

func (r *imageViewRenderer) Destroy() {
}
