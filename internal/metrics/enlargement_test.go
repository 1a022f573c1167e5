package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func flat(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func TestConsistencyPSNRIdenticalContent(t *testing.T) {
	src := flat(10, 10, 120)
	defer src.Close()
	big := flat(20, 20, 120)
	defer big.Close()

	psnr, err := NewConsistencyPSNR().Calculate(src, big)

	require.NoError(t, err)
	assert.True(t, math.IsInf(psnr, 1))
}

func TestConsistencyPSNRDetectsDrift(t *testing.T) {
	src := flat(10, 10, 120)
	defer src.Close()
	big := flat(20, 20, 60)
	defer big.Close()

	psnr, err := NewConsistencyPSNR().Calculate(src, big)

	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(255.0/60.0), psnr, 0.01)
}

func TestSharpnessFlatImage(t *testing.T) {
	src := flat(8, 8, 10)
	defer src.Close()
	big := flat(16, 16, 10)
	defer big.Close()

	ratio, err := NewSharpness().Calculate(src, big)

	require.NoError(t, err)
	assert.Equal(t, 1.0, ratio)
}

func TestEvaluator(t *testing.T) {
	e := NewEvaluator()
	assert.Equal(t, []string{"consistency_psnr", "sharpness_ratio"}, e.Names())

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Empty(t, e.CalculateAll(empty, empty))

	_, err := e.Calculate("ssim", empty, empty)
	assert.Error(t, err)
}
