package metrics

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// ConsistencyPSNR shrinks the enlarged image back to the source size and
// measures PSNR against the source. Higher means the enlargement kept the
// original content.
type ConsistencyPSNR struct{}

func NewConsistencyPSNR() *ConsistencyPSNR {
	return &ConsistencyPSNR{}
}

func (p *ConsistencyPSNR) Calculate(original, enlarged gocv.Mat) (float64, error) {
	if original.Empty() || enlarged.Empty() {
		return 0, fmt.Errorf("empty images")
	}

	shrunk := gocv.NewMat()
	defer shrunk.Close()
	size := image.Point{X: original.Cols(), Y: original.Rows()}
	if err := gocv.Resize(enlarged, &shrunk, size, 0, 0, gocv.InterpolationArea); err != nil {
		return 0, fmt.Errorf("shrink for comparison: %w", err)
	}

	gray1 := ensureGrayscale(original)
	defer closeIfCopy(gray1, original)
	gray2 := ensureGrayscale(shrunk)
	defer closeIfCopy(gray2, shrunk)

	sumSquaredDiff := 0.0
	totalPixels := gray1.Rows() * gray1.Cols()
	for y := 0; y < gray1.Rows(); y++ {
		for x := 0; x < gray1.Cols(); x++ {
			diff := float64(gray1.GetUCharAt(y, x)) - float64(gray2.GetUCharAt(y, x))
			sumSquaredDiff += diff * diff
		}
	}

	mse := sumSquaredDiff / float64(totalPixels)
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 20 * math.Log10(255.0/math.Sqrt(mse)), nil
}

func (p *ConsistencyPSNR) GetName() string {
	return "Consistency PSNR"
}

func (p *ConsistencyPSNR) GetDescription() string {
	return "PSNR between the source and the enlarged image shrunk back to source size"
}

func (p *ConsistencyPSNR) IsHigherBetter() bool {
	return true
}

// Sharpness compares the variance of the Laplacian of both images.
type Sharpness struct{}

func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, enlarged gocv.Mat) (float64, error) {
	if original.Empty() || enlarged.Empty() {
		return 0, fmt.Errorf("empty images")
	}

	origSharpness := laplacianVariance(original)
	procSharpness := laplacianVariance(enlarged)

	if origSharpness == 0 {
		return 1.0, nil
	}
	return procSharpness / origSharpness, nil
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Edge energy of the enlarged image relative to the source"
}

func (s *Sharpness) IsHigherBetter() bool {
	return true
}

func laplacianVariance(input gocv.Mat) float64 {
	gray := ensureGrayscale(input)
	defer closeIfCopy(gray, input)

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stdDev := gocv.NewMat()
	defer stdDev.Close()
	gocv.MeanStdDev(laplacian, &mean, &stdDev)

	sd := stdDev.GetDoubleAt(0, 0)
	return sd * sd
}

func ensureGrayscale(input gocv.Mat) gocv.Mat {
	if input.Channels() == 1 {
		return input
	}

	gray := gocv.NewMat()
	gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	return gray
}

func closeIfCopy(m, input gocv.Mat) {
	if m.Ptr() != input.Ptr() {
		m.Close()
	}
}
