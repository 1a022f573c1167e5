// Viewport fitting for the displayed image
package preview

import (
	"image"

	"golang.org/x/image/draw"

	"thera/internal/upscale"
)

// Fit scales src to the largest size that fits viewport while keeping the
// aspect ratio. An empty viewport returns src unchanged.
func Fit(src image.Image, viewport upscale.Size) image.Image {
	b := src.Bounds()
	if viewport.Empty() || b.Dx() <= 0 || b.Dy() <= 0 {
		return src
	}

	size := FitSize(upscale.Size{Width: b.Dx(), Height: b.Dy()}, viewport)
	if size.Width == b.Dx() && size.Height == b.Dy() {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// FitSize computes the dimensions Fit would produce.
func FitSize(src, viewport upscale.Size) upscale.Size {
	if viewport.Empty() || src.Empty() {
		return src
	}

	scaleW := float64(viewport.Width) / float64(src.Width)
	scaleH := float64(viewport.Height) / float64(src.Height)
	scale := min(scaleW, scaleH)

	return upscale.Size{
		Width:  max(1, int(float64(src.Width)*scale)),
		Height: max(1, int(float64(src.Height)*scale)),
	}
}
