// Quality measurements attached to finished enlargements
package metrics

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Metric compares a source image with its enlarged counterpart. The two
// Mats are expected to differ in size.
type Metric interface {
	Calculate(original, enlarged gocv.Mat) (float64, error)
	GetName() string
	GetDescription() string
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("consistency_psnr", NewConsistencyPSNR())
	e.Register("sharpness_ratio", NewSharpness())
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

func (e *Evaluator) Calculate(name string, original, enlarged gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(original, enlarged)
}

// CalculateAll skips metrics that fail.
func (e *Evaluator) CalculateAll(original, enlarged gocv.Mat) map[string]float64 {
	results := make(map[string]float64)
	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, enlarged); err == nil {
			results[name] = value
		}
	}
	return results
}

// Names returns the registered metric names in order.
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
