// Interpolation and super-resolution enlargement behind one dispatch surface
package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"thera/internal/apperr"
	"thera/internal/imageio"
	"thera/internal/metrics"
	"thera/internal/upscale"
)

// Engine is safe for concurrent use. Interpolation is stateless; super
// resolution shares the model cache.
type Engine struct {
	logger    *logrus.Logger
	loader    *imageio.ImageLoader
	models    *ModelCache
	evaluator *metrics.Evaluator
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	modelLoader ModelLoader
	evaluator   *metrics.Evaluator
}

// WithModelLoader replaces the LapSRN loader.
func WithModelLoader(load ModelLoader) Option {
	return func(c *engineConfig) {
		c.modelLoader = load
	}
}

// WithEvaluator sets the metrics evaluator used for reports. A nil
// evaluator disables measurements.
func WithEvaluator(e *metrics.Evaluator) Option {
	return func(c *engineConfig) {
		c.evaluator = e
	}
}

func New(loader *imageio.ImageLoader, binding upscale.ModelBinding, logger *logrus.Logger, opts ...Option) *Engine {
	cfg := engineConfig{
		modelLoader: LoadLapSRN,
		evaluator:   metrics.NewEvaluator(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		logger:    logger,
		loader:    loader,
		models:    NewModelCache(binding, cfg.modelLoader),
		evaluator: cfg.evaluator,
	}
}

// Enlarge returns a new Mat owned by the caller. img is not modified.
func (e *Engine) Enlarge(img gocv.Mat, req upscale.Request) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), apperr.Wrap(apperr.InferenceFailure, nil, "source image is empty")
	}

	switch m := req.Method.(type) {
	case upscale.Interpolation:
		return e.interpolate(img, m.Kernel, req.Target)
	case upscale.SuperResolution:
		return e.superResolve(img, m.Multiplier)
	default:
		return gocv.NewMat(), fmt.Errorf("%w: %T", upscale.ErrUnknownMethod, req.Method)
	}
}

func (e *Engine) interpolate(img gocv.Mat, kernel upscale.Kernel, target upscale.Size) (gocv.Mat, error) {
	if target.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: target size %dx%d", upscale.ErrInvalidRequest, target.Width, target.Height)
	}

	flag, err := interpolationFlag(kernel)
	if err != nil {
		return gocv.NewMat(), err
	}

	e.logger.WithFields(logrus.Fields{
		"kernel": kernel.String(),
		"from":   fmt.Sprintf("%dx%d", img.Cols(), img.Rows()),
		"to":     fmt.Sprintf("%dx%d", target.Width, target.Height),
	}).Debug("ENGINE: Resizing")

	result := gocv.NewMat()
	if err := gocv.Resize(img, &result, image.Point{X: target.Width, Y: target.Height}, 0, 0, flag); err != nil {
		result.Close()
		return gocv.NewMat(), fmt.Errorf("resize with %s: %w", kernel, err)
	}
	return result, nil
}

func interpolationFlag(kernel upscale.Kernel) (gocv.InterpolationFlags, error) {
	switch kernel {
	case upscale.Bilinear:
		return gocv.InterpolationLinear, nil
	case upscale.Cubic:
		return gocv.InterpolationCubic, nil
	case upscale.Lanczos:
		return gocv.InterpolationLanczos4, nil
	default:
		return 0, fmt.Errorf("%w: kernel %s", upscale.ErrUnknownMethod, kernel)
	}
}

// superResolve keeps the model's output size as is.
func (e *Engine) superResolve(img gocv.Mat, multiplier int) (gocv.Mat, error) {
	model, err := e.models.Get(multiplier)
	if err != nil {
		return gocv.NewMat(), apperr.Wrap(apperr.InferenceFailure, err, "load model x%d", multiplier)
	}

	e.logger.WithFields(logrus.Fields{
		"multiplier": multiplier,
		"from":       fmt.Sprintf("%dx%d", img.Cols(), img.Rows()),
	}).Debug("ENGINE: Running super resolution")

	result, err := model.Upsample(img)
	if err != nil {
		result.Close()
		return gocv.NewMat(), apperr.Wrap(apperr.InferenceFailure, err, "x%d inference", multiplier)
	}
	if result.Empty() {
		result.Close()
		return gocv.NewMat(), apperr.Wrap(apperr.InferenceFailure, nil, "x%d inference returned no image", multiplier)
	}
	return result, nil
}

// Save encodes img to destination by extension.
func (e *Engine) Save(img gocv.Mat, destination string) error {
	return e.loader.SaveMat(img, destination)
}

// EnlargeFile loads the request's source, enlarges it and writes the
// destination. Nothing is written when enlargement fails.
func (e *Engine) EnlargeFile(ctx context.Context, req upscale.Request) (upscale.Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return upscale.Report{}, err
	}
	if err := req.Validate(); err != nil {
		return upscale.Report{}, err
	}

	log := e.logger.WithFields(logrus.Fields{
		"source":      req.SourcePath,
		"destination": req.DestinationPath,
		"method":      req.Method.Name(),
		"multiplier":  req.Multiplier,
	})
	log.Info("ENGINE: Enlargement started")

	src, err := e.loader.LoadMat(req.SourcePath)
	if err != nil {
		src.Close()
		log.WithError(err).Error("ENGINE: Failed to read source")
		return upscale.Report{}, apperr.Wrap(apperr.InferenceFailure, err, "read source")
	}
	defer src.Close()

	out, err := e.Enlarge(src, req)
	if err != nil {
		out.Close()
		log.WithError(err).Error("ENGINE: Enlargement failed")
		return upscale.Report{}, err
	}
	defer out.Close()

	if err := e.Save(out, req.DestinationPath); err != nil {
		log.WithError(err).Error("ENGINE: Failed to save enlarged image")
		return upscale.Report{}, err
	}

	report := upscale.Report{
		Method:      req.Method.Name(),
		Source:      upscale.Size{Width: src.Cols(), Height: src.Rows()},
		Output:      upscale.Size{Width: out.Cols(), Height: out.Rows()},
		Destination: req.DestinationPath,
	}
	if e.evaluator != nil {
		report.Metrics = e.evaluator.CalculateAll(src, out)
	}
	report.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"output":     report.Output.String(),
		"elapsed_ms": report.Elapsed.Milliseconds(),
		"metrics":    report.Metrics,
	}).Info("ENGINE: Enlargement finished")

	return report, nil
}

// Close releases loaded models.
func (e *Engine) Close() {
	e.models.Close()
}
