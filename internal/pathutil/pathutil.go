// Path helpers for supported image files
package pathutil

import (
	"path/filepath"
	"slices"
	"strings"
)

// SupportedFormats lists the extensions the viewer can display, without dots.
var SupportedFormats = []string{"bmp", "jpeg", "jpg", "gif", "png", "svg", "svgz", "tif", "webp"}

// EncodableFormats are the extensions an enlarged image can be written as.
// Vector formats are display-only.
var EncodableFormats = []string{"bmp", "jpeg", "jpg", "png", "tif", "webp", "gif"}

// Extension returns the substring after the last '.' of the base name, or ""
// when the name has no dot.
func Extension(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return base[i+1:]
}

// IsSupported reports whether path has a supported extension. Matching is
// case-insensitive.
func IsSupported(path string) bool {
	ext := strings.ToLower(Extension(path))
	if ext == "" {
		return false
	}
	return slices.Contains(SupportedFormats, ext)
}

// IsEncodable reports whether an image can be written to path's format.
func IsEncodable(path string) bool {
	return slices.Contains(EncodableFormats, strings.ToLower(Extension(path)))
}

// Stem returns the base name without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// Sibling builds a path next to path named name with path's extension.
func Sibling(path, name string) string {
	ext := Extension(path)
	if ext == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	return filepath.Join(filepath.Dir(path), name+"."+ext)
}

// SortPaths sorts in place by byte order, so upper case sorts before lower.
func SortPaths(paths []string) {
	slices.Sort(paths)
}

// Normalize returns an absolute, cleaned form of path.
func Normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
