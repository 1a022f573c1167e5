package upscale

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	testCases := []struct {
		label string
		want  Method
	}{
		{"Bilinear", Interpolation{Kernel: Bilinear}},
		{"cubic", Interpolation{Kernel: Cubic}},
		{"LANCZOS", Interpolation{Kernel: Lanczos}},
		{"Super Resolution", SuperResolution{Multiplier: 4}},
		{"SuperResolution", SuperResolution{Multiplier: 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			got, err := ParseMethod(tc.label, 4)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseMethod("nearest", 2)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestParseMultiplier(t *testing.T) {
	for label, want := range map[string]int{"X2": 2, "x4": 4, "8": 8, " X8 ": 8} {
		got, err := ParseMultiplier(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	for _, bad := range []string{"X3", "16", "", "big"} {
		_, err := ParseMultiplier(bad)
		assert.ErrorIs(t, err, ErrUnsupportedMultiplier, bad)
	}
}

func TestNewRequestComputesTarget(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.png")
	req, err := NewRequest("/pics/a.png", Interpolation{Kernel: Bilinear}, 4, Size{Width: 10, Height: 7}, dest)

	require.NoError(t, err)
	assert.Equal(t, Size{Width: 40, Height: 28}, req.Target)
	assert.Equal(t, "40 X 28", req.Target.String())
}

func TestNewRequestAlignsSuperResolutionMultiplier(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.png")
	req, err := NewRequest("/pics/a.png", SuperResolution{}, 8, Size{Width: 3, Height: 3}, dest)

	require.NoError(t, err)
	assert.Equal(t, SuperResolution{Multiplier: 8}, req.Method)
}

func TestRequestValidate(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.png")
	src := Size{Width: 10, Height: 10}

	_, err := NewRequest("", Interpolation{}, 2, src, dest)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewRequest("/a.png", Interpolation{}, 3, src, dest)
	assert.ErrorIs(t, err, ErrUnsupportedMultiplier)

	_, err = NewRequest("/a.png", Interpolation{}, 2, Size{}, dest)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewRequest("/a.png", Interpolation{}, 2, src, "relative.png")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewRequest("/a.png", nil, 2, src, dest)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestModelBinding(t *testing.T) {
	b := DefaultBinding("models")
	require.NoError(t, b.Validate())

	path, err := b.Lookup(4)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("models", "LapSRN_x4.pb"), path)

	_, err = b.Lookup(3)
	assert.ErrorIs(t, err, ErrUnsupportedMultiplier)

	delete(b, 8)
	assert.ErrorIs(t, b.Validate(), ErrUnsupportedMultiplier)
}
