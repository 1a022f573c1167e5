// Image loading and saving for display and enlargement
package imageio

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"gocv.io/x/gocv"
	"golang.org/x/image/webp"

	"thera/internal/apperr"
	"thera/internal/pathutil"
)

// ErrUndecodable marks a file that exists but cannot be rendered.
var ErrUndecodable = errors.New("image cannot be decoded")

// ImageLoader handles image file operations
type ImageLoader struct {
	logger *logrus.Logger
}

func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// Decode reads path into a Go image for display.
func (il *ImageLoader) Decode(path string) (image.Image, error) {
	il.logger.WithField("filepath", path).Debug("Decoding image")

	if !pathutil.IsSupported(path) {
		return nil, apperr.Wrap(apperr.UnsupportedFormat, nil, "%s", path)
	}

	var (
		img image.Image
		err error
	)
	switch format(path) {
	case "svg", "svgz":
		img, err = il.rasterizeSVG(path)
	case "gif":
		img, err = decodeGIF(path)
	default:
		img, err = il.decodeWithOpenCV(path)
	}
	if err != nil {
		return nil, err
	}

	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrUndecodable, path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Debug("Image decoded")

	return img, nil
}

// LoadMat reads path as a BGR Mat for the engine. The caller closes it.
func (il *ImageLoader) LoadMat(path string) (gocv.Mat, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	if !pathutil.IsSupported(path) {
		return gocv.NewMat(), apperr.Wrap(apperr.UnsupportedFormat, nil, "%s", path)
	}

	switch format(path) {
	case "svg", "svgz", "gif":
		img, err := il.Decode(path)
		if err != nil {
			return gocv.NewMat(), err
		}
		mat, err := gocv.ImageToMatRGB(img)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
		}
		return mat, nil
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		if format(path) == "webp" {
			return il.loadWebPFallback(path)
		}
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrUndecodable, path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("Image loaded successfully")

	return mat, nil
}

// SaveMat encodes mat to path, choosing the encoder from the extension.
func (il *ImageLoader) SaveMat(mat gocv.Mat, path string) error {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if mat.Empty() {
		return apperr.Wrap(apperr.WriteFailure, nil, "cannot save empty image to %s", path)
	}
	if !pathutil.IsEncodable(path) {
		return apperr.Wrap(apperr.UnsupportedFormat, nil, "cannot encode %s", path)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return apperr.Wrap(apperr.WriteFailure, err, "destination directory of %s", path)
	}

	if format(path) == "gif" {
		if err := saveGIF(mat, path); err != nil {
			return apperr.Wrap(apperr.WriteFailure, err, "%s", path)
		}
	} else if ok := gocv.IMWrite(path, mat); !ok {
		return apperr.Wrap(apperr.WriteFailure, nil, "failed to save image: %s", path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("Image saved successfully")

	return nil
}

func (il *ImageLoader) decodeWithOpenCV(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		if format(path) == "webp" {
			return decodeWebP(path)
		}
		return nil, fmt.Errorf("%w: %s", ErrUndecodable, path)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	return img, nil
}

func (il *ImageLoader) loadWebPFallback(path string) (gocv.Mat, error) {
	il.logger.WithField("filepath", path).Debug("OpenCV lacks WebP support, using pure Go decoder")

	img, err := decodeWebP(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	return mat, nil
}

func (il *ImageLoader) rasterizeSVG(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}

	if format(path) == "svgz" {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
		}
		defer zr.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(zr); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
		}
		data = buf.Bytes()
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}

	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %s has an empty view box", ErrUndecodable, path)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    w,
		"height":   h,
	}).Debug("SVG rasterized")

	return rgba, nil
}

func decodeGIF(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	defer f.Close()

	img, err := gif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	return img, nil
}

func decodeWebP(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	defer f.Close()

	img, err := webp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	return img, nil
}

func saveGIF(mat gocv.Mat, path string) error {
	img, err := mat.ToImage()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gif.Encode(f, img, nil); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func format(path string) string {
	return strings.ToLower(pathutil.Extension(path))
}
