// Enlargement requests and the method variants the engine dispatches on
package upscale

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kernel is a resampling filter used by interpolation.
type Kernel int

const (
	Bilinear Kernel = iota
	Cubic
	Lanczos
)

func (k Kernel) String() string {
	switch k {
	case Bilinear:
		return "Bilinear"
	case Cubic:
		return "Cubic"
	case Lanczos:
		return "Lanczos"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// Method is either Interpolation or SuperResolution.
type Method interface {
	Name() string
	isMethod()
}

// Interpolation resizes with a parametric kernel to the request target size.
type Interpolation struct {
	Kernel Kernel
}

func (m Interpolation) Name() string { return m.Kernel.String() }
func (Interpolation) isMethod()      {}

// SuperResolution runs the model bound to Multiplier.
type SuperResolution struct {
	Multiplier int
}

func (SuperResolution) Name() string { return "Super Resolution" }
func (SuperResolution) isMethod()    {}

var ErrUnknownMethod = errors.New("unknown enlargement method")

// ParseMethod maps a method label from the presentation layer to a Method.
func ParseMethod(label string, multiplier int) (Method, error) {
	key := strings.ToLower(strings.Join(strings.Fields(label), ""))
	switch key {
	case "bilinear", "linear":
		return Interpolation{Kernel: Bilinear}, nil
	case "cubic", "bicubic":
		return Interpolation{Kernel: Cubic}, nil
	case "lanczos", "lanczos4":
		return Interpolation{Kernel: Lanczos}, nil
	case "superresolution", "sr":
		return SuperResolution{Multiplier: multiplier}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, label)
	}
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Scale multiplies both dimensions.
func (s Size) Scale(multiplier int) Size {
	return Size{Width: s.Width * multiplier, Height: s.Height * multiplier}
}

// String renders the size the way the enlargement dialog shows it.
func (s Size) String() string {
	return fmt.Sprintf("%d X %d", s.Width, s.Height)
}

// Multipliers are the scale factors offered to the user.
var Multipliers = []int{2, 4, 8}

var (
	ErrUnsupportedMultiplier = errors.New("unsupported scale multiplier")
	ErrInvalidRequest        = errors.New("invalid enlargement request")
)

// ValidMultiplier reports whether m is one of Multipliers.
func ValidMultiplier(m int) bool {
	for _, v := range Multipliers {
		if v == m {
			return true
		}
	}
	return false
}

// ParseMultiplier accepts "X2", "x4", "8" and similar labels.
func ParseMultiplier(label string) (int, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(label)), "x")
	var m int
	if _, err := fmt.Sscanf(s, "%d", &m); err != nil || !ValidMultiplier(m) {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMultiplier, label)
	}
	return m, nil
}

// Request is one enlargement job's input, captured by value at submission.
type Request struct {
	SourcePath      string
	Method          Method
	Multiplier      int
	Source          Size
	Target          Size
	DestinationPath string
}

// NewRequest builds a request; the target size is derived from source.
func NewRequest(sourcePath string, method Method, multiplier int, source Size, destination string) (Request, error) {
	req := Request{
		SourcePath:      sourcePath,
		Method:          method,
		Multiplier:      multiplier,
		Source:          source,
		Target:          source.Scale(multiplier),
		DestinationPath: destination,
	}
	if sr, ok := method.(SuperResolution); ok && sr.Multiplier != multiplier {
		sr.Multiplier = multiplier
		req.Method = sr
	}
	return req, req.Validate()
}

// Validate checks the request's static contract.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.SourcePath) == "":
		return fmt.Errorf("%w: source path is empty", ErrInvalidRequest)
	case r.Method == nil:
		return fmt.Errorf("%w: method is missing", ErrInvalidRequest)
	case !ValidMultiplier(r.Multiplier):
		return fmt.Errorf("%w: %d", ErrUnsupportedMultiplier, r.Multiplier)
	case r.Source.Empty():
		return fmt.Errorf("%w: source size %dx%d", ErrInvalidRequest, r.Source.Width, r.Source.Height)
	case strings.TrimSpace(r.DestinationPath) == "":
		return fmt.Errorf("%w: destination path is empty", ErrInvalidRequest)
	case !filepath.IsAbs(r.DestinationPath):
		return fmt.Errorf("%w: destination %q is not absolute", ErrInvalidRequest, r.DestinationPath)
	}
	return nil
}

// Report summarises one finished enlargement.
type Report struct {
	Method      string
	Source      Size
	Output      Size
	Destination string
	Elapsed     time.Duration
	Metrics     map[string]float64
}
