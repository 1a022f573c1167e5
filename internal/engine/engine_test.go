package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"thera/internal/apperr"
	"thera/internal/imageio"
	"thera/internal/upscale"
)

// fakeModel emits a fixed-size image regardless of input.
type fakeModel struct {
	out    upscale.Size
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (m *fakeModel) Upsample(src gocv.Mat) (gocv.Mat, error) {
	m.calls.Add(1)
	if m.err != nil {
		return gocv.NewMat(), m.err
	}
	return gocv.NewMatWithSize(m.out.Height, m.out.Width, gocv.MatTypeCV8UC3), nil
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

type countingLoader struct {
	loads atomic.Int32
	model Model
	err   error
}

func (l *countingLoader) load(path string, multiplier int) (Model, error) {
	l.loads.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(load ModelLoader) *Engine {
	logger := quietLogger()
	return New(imageio.NewImageLoader(logger), upscale.DefaultBinding("models"), logger, WithModelLoader(load))
}

func writeSource(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestEnlargeInterpolation(t *testing.T) {
	for _, kernel := range []upscale.Kernel{upscale.Bilinear, upscale.Cubic, upscale.Lanczos} {
		t.Run(kernel.String(), func(t *testing.T) {
			e := newTestEngine((&countingLoader{}).load)
			src := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
			defer src.Close()

			req := upscale.Request{
				SourcePath:      "/pics/a.png",
				Method:          upscale.Interpolation{Kernel: kernel},
				Multiplier:      2,
				Source:          upscale.Size{Width: 10, Height: 10},
				Target:          upscale.Size{Width: 20, Height: 20},
				DestinationPath: "/pics/b.png",
			}

			out, err := e.Enlarge(src, req)
			require.NoError(t, err)
			defer out.Close()

			assert.Equal(t, 20, out.Cols())
			assert.Equal(t, 20, out.Rows())
		})
	}
}

func TestEnlargeSuperResolutionUnboundMultiplier(t *testing.T) {
	loader := &countingLoader{model: &fakeModel{out: upscale.Size{Width: 30, Height: 30}}}
	e := newTestEngine(loader.load)
	src := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer src.Close()

	req := upscale.Request{
		SourcePath: "/pics/a.png",
		Method:     upscale.SuperResolution{Multiplier: 3},
		Multiplier: 3,
		Target:     upscale.Size{Width: 30, Height: 30},
	}

	out, err := e.Enlarge(src, req)
	defer out.Close()

	assert.ErrorIs(t, err, upscale.ErrUnsupportedMultiplier)
	assert.ErrorIs(t, err, apperr.ErrInferenceFailure)
	assert.Equal(t, int32(0), loader.loads.Load())
	assert.True(t, out.Empty())
}

func TestEnlargeSuperResolutionKeepsModelOutputSize(t *testing.T) {
	model := &fakeModel{out: upscale.Size{Width: 7, Height: 5}}
	loader := &countingLoader{model: model}
	e := newTestEngine(loader.load)
	src := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer src.Close()

	req := upscale.Request{
		Method:     upscale.SuperResolution{Multiplier: 2},
		Multiplier: 2,
		Target:     upscale.Size{Width: 20, Height: 20},
	}

	out, err := e.Enlarge(src, req)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 7, out.Cols())
	assert.Equal(t, 5, out.Rows())
	assert.Equal(t, int32(1), model.calls.Load())
}

func TestEnlargeSuperResolutionInferenceError(t *testing.T) {
	model := &fakeModel{err: errors.New("shape mismatch")}
	e := newTestEngine((&countingLoader{model: model}).load)
	src := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer src.Close()

	out, err := e.Enlarge(src, upscale.Request{Method: upscale.SuperResolution{Multiplier: 4}, Multiplier: 4})
	defer out.Close()

	assert.ErrorIs(t, err, apperr.ErrInferenceFailure)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestModelCacheMemoizesPerMultiplier(t *testing.T) {
	loader := &countingLoader{model: &fakeModel{out: upscale.Size{Width: 2, Height: 2}}}
	cache := NewModelCache(upscale.DefaultBinding("models"), loader.load)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), loader.loads.Load())

	_, err := cache.Get(2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.loads.Load())
	assert.Equal(t, 2, cache.Loaded())

	cache.Close()
	assert.True(t, loader.model.(*fakeModel).closed.Load())
	assert.Equal(t, 0, cache.Loaded())
}

func TestModelCacheRetriesFailedLoad(t *testing.T) {
	loader := &countingLoader{err: os.ErrNotExist}
	cache := NewModelCache(upscale.DefaultBinding("models"), loader.load)

	_, err := cache.Get(8)
	assert.ErrorIs(t, err, os.ErrNotExist)

	loader.err = nil
	loader.model = &fakeModel{}
	model, err := cache.Get(8)
	require.NoError(t, err)
	assert.NotNil(t, model)
	assert.Equal(t, int32(2), loader.loads.Load())
}

func TestLoadLapSRNMissingFile(t *testing.T) {
	_, err := LoadLapSRN(filepath.Join(t.TempDir(), "LapSRN_x2.pb"), 2)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnlargeFileWritesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeSource(t, src, 10, 6)
	dest := filepath.Join(dir, "out.png")

	e := newTestEngine((&countingLoader{}).load)
	req, err := upscale.NewRequest(src, upscale.Interpolation{Kernel: upscale.Lanczos}, 4, upscale.Size{Width: 10, Height: 6}, dest)
	require.NoError(t, err)

	report, err := e.EnlargeFile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, upscale.Size{Width: 40, Height: 24}, report.Output)
	assert.Equal(t, upscale.Size{Width: 10, Height: 6}, report.Source)
	assert.Equal(t, "Lanczos", report.Method)
	assert.Contains(t, report.Metrics, "consistency_psnr")

	written := gocv.IMRead(dest, gocv.IMReadColor)
	defer written.Close()
	assert.Equal(t, 40, written.Cols())
	assert.Equal(t, 24, written.Rows())
}

func TestEnlargeFileSkipsSaveOnInferenceFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeSource(t, src, 5, 5)
	dest := filepath.Join(dir, "out.png")

	e := newTestEngine((&countingLoader{err: errors.New("corrupt graph")}).load)
	req, err := upscale.NewRequest(src, upscale.SuperResolution{}, 2, upscale.Size{Width: 5, Height: 5}, dest)
	require.NoError(t, err)

	_, err = e.EnlargeFile(context.Background(), req)

	assert.ErrorIs(t, err, apperr.ErrInferenceFailure)
	assert.NoFileExists(t, dest)
}

func TestEnlargeFileUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeSource(t, src, 5, 5)
	dest := filepath.Join(dir, "nope", "out.png")

	e := newTestEngine((&countingLoader{}).load)
	req, err := upscale.NewRequest(src, upscale.Interpolation{Kernel: upscale.Bilinear}, 2, upscale.Size{Width: 5, Height: 5}, dest)
	require.NoError(t, err)

	_, err = e.EnlargeFile(context.Background(), req)

	assert.ErrorIs(t, err, apperr.ErrWriteFailure)
}

func TestEnlargeFileHonoursCancelledContext(t *testing.T) {
	e := newTestEngine((&countingLoader{}).load)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EnlargeFile(ctx, upscale.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
