package upscale

import (
	"fmt"
	"path/filepath"
)

// ModelBinding maps a multiplier to the model file trained for it.
type ModelBinding map[int]string

// DefaultBinding points at the LapSRN graphs under dir.
func DefaultBinding(dir string) ModelBinding {
	return ModelBinding{
		2: filepath.Join(dir, "LapSRN_x2.pb"),
		4: filepath.Join(dir, "LapSRN_x4.pb"),
		8: filepath.Join(dir, "LapSRN_x8.pb"),
	}
}

// Lookup returns the model path for multiplier.
func (b ModelBinding) Lookup(multiplier int) (string, error) {
	path, ok := b[multiplier]
	if !ok || path == "" {
		return "", fmt.Errorf("%w: no model bound to x%d", ErrUnsupportedMultiplier, multiplier)
	}
	return path, nil
}

// Validate checks the binding covers every offered multiplier.
func (b ModelBinding) Validate() error {
	for _, m := range Multipliers {
		if _, err := b.Lookup(m); err != nil {
			return err
		}
	}
	return nil
}
