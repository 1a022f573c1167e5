package preview

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"thera/internal/upscale"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestFit(t *testing.T) {
	src := gradient(100, 50)

	fitted := Fit(src, upscale.Size{Width: 40, Height: 40})
	assert.Equal(t, image.Rect(0, 0, 40, 20), fitted.Bounds())

	grown := Fit(src, upscale.Size{Width: 400, Height: 400})
	assert.Equal(t, image.Rect(0, 0, 400, 200), grown.Bounds())

	assert.Same(t, src, Fit(src, upscale.Size{}))
	assert.Same(t, src, Fit(src, upscale.Size{Width: 100, Height: 50}))
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		name     string
		src      upscale.Size
		viewport upscale.Size
		want     upscale.Size
	}{
		{"wide into square", upscale.Size{Width: 200, Height: 100}, upscale.Size{Width: 50, Height: 50}, upscale.Size{Width: 50, Height: 25}},
		{"tall into square", upscale.Size{Width: 100, Height: 200}, upscale.Size{Width: 50, Height: 50}, upscale.Size{Width: 25, Height: 50}},
		{"never collapses", upscale.Size{Width: 1000, Height: 1}, upscale.Size{Width: 10, Height: 10}, upscale.Size{Width: 10, Height: 1}},
		{"empty viewport", upscale.Size{Width: 30, Height: 20}, upscale.Size{}, upscale.Size{Width: 30, Height: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FitSize(tt.src, tt.viewport))
		})
	}
}
