package engine

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"thera/internal/upscale"
)

// Model upsamples a BGR image. Output size is whatever the network emits.
type Model interface {
	Upsample(src gocv.Mat) (gocv.Mat, error)
	Close() error
}

// ModelLoader opens the model stored at path for multiplier.
type ModelLoader func(path string, multiplier int) (Model, error)

type cacheEntry struct {
	once  sync.Once
	model Model
	err   error
}

// ModelCache lazily loads one model per multiplier and keeps it for the
// life of the cache. A failed load is forgotten so the next call retries.
type ModelCache struct {
	binding upscale.ModelBinding
	load    ModelLoader

	mu      sync.Mutex
	entries map[int]*cacheEntry
}

func NewModelCache(binding upscale.ModelBinding, load ModelLoader) *ModelCache {
	return &ModelCache{
		binding: binding,
		load:    load,
		entries: make(map[int]*cacheEntry),
	}
}

// Get returns the model bound to multiplier, loading it on first use.
func (c *ModelCache) Get(multiplier int) (Model, error) {
	path, err := c.binding.Lookup(multiplier)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	entry, ok := c.entries[multiplier]
	if !ok {
		entry = &cacheEntry{}
		c.entries[multiplier] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.model, entry.err = c.load(path, multiplier)
	})

	if entry.err != nil {
		c.mu.Lock()
		if c.entries[multiplier] == entry {
			delete(c.entries, multiplier)
		}
		c.mu.Unlock()
		return nil, entry.err
	}
	return entry.model, nil
}

// Loaded returns how many models are resident.
func (c *ModelCache) Loaded() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, entry := range c.entries {
		if entry.model != nil {
			n++
		}
	}
	return n
}

// Close releases every loaded model.
func (c *ModelCache) Close() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[int]*cacheEntry)
	c.mu.Unlock()

	for _, entry := range entries {
		if entry.model != nil {
			entry.model.Close()
		}
	}
}

// lapSRN runs a LapSRN TensorFlow graph on the luma channel.
type lapSRN struct {
	mu         sync.Mutex
	net        gocv.Net
	multiplier int
}

// LoadLapSRN is the ModelLoader used outside of tests.
func LoadLapSRN(path string, multiplier int) (Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model for x%d: %w", multiplier, err)
	}

	net := gocv.ReadNetFromTensorflow(path)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("model for x%d at %s could not be read", multiplier, path)
	}

	return &lapSRN{net: net, multiplier: multiplier}, nil
}

// Upsample is serialized per model; the net reuses its buffers between
// forward passes.
func (m *lapSRN) Upsample(src gocv.Mat) (gocv.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if src.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty input")
	}

	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	if err := gocv.CvtColor(src, &ycrcb, gocv.ColorBGRToYCrCb); err != nil {
		return gocv.NewMat(), fmt.Errorf("convert to YCrCb: %w", err)
	}

	normalized := gocv.NewMat()
	defer normalized.Close()
	ycrcb.ConvertToWithParams(&normalized, gocv.MatTypeCV32F, 1.0/255.0, 0)

	channels := gocv.Split(normalized)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != 3 {
		return gocv.NewMat(), fmt.Errorf("expected 3 channels, got %d", len(channels))
	}

	blob := gocv.BlobFromImage(channels[0], 1.0, image.Point{}, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()
	if output.Empty() {
		return gocv.NewMat(), fmt.Errorf("x%d network produced no output", m.multiplier)
	}

	luma := gocv.GetBlobChannel(output, 0, 0)
	defer luma.Close()
	size := image.Point{X: luma.Cols(), Y: luma.Rows()}
	if size.X <= 0 || size.Y <= 0 {
		return gocv.NewMat(), fmt.Errorf("x%d network produced an empty image", m.multiplier)
	}

	cr := gocv.NewMat()
	defer cr.Close()
	cb := gocv.NewMat()
	defer cb.Close()
	if err := gocv.Resize(channels[1], &cr, size, 0, 0, gocv.InterpolationCubic); err != nil {
		return gocv.NewMat(), fmt.Errorf("upscale Cr: %w", err)
	}
	if err := gocv.Resize(channels[2], &cb, size, 0, 0, gocv.InterpolationCubic); err != nil {
		return gocv.NewMat(), fmt.Errorf("upscale Cb: %w", err)
	}

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge([]gocv.Mat{luma, cr, cb}, &merged)

	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(merged, &bgr, gocv.ColorYCrCbToBGR); err != nil {
		return gocv.NewMat(), fmt.Errorf("convert to BGR: %w", err)
	}

	result := gocv.NewMat()
	bgr.ConvertToWithParams(&result, gocv.MatTypeCV8U, 255.0, 0)
	if result.Empty() {
		result.Close()
		return gocv.NewMat(), fmt.Errorf("x%d reconstruction failed", m.multiplier)
	}
	return result, nil
}

func (m *lapSRN) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
