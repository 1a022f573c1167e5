// Sorted set of displayable images in one directory plus the current position
package collection

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"thera/internal/apperr"
	"thera/internal/pathutil"
)

// Direction selects the navigation step.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

const noIndex = -1

// Collection is not safe for concurrent use; the session controller owns it.
type Collection struct {
	dir     string
	entries []string
	current int
}

// New returns an empty collection with no current image.
func New() *Collection {
	return &Collection{current: noIndex}
}

// Scan builds a collection from dir.
func Scan(dir string) (*Collection, error) {
	c := New()
	if _, err := c.Rescan(dir); err != nil {
		return nil, err
	}
	return c, nil
}

// Rescan lists dir, keeps supported files, sorts them and replaces the
// entries. The current index is cleared. On error nothing changes.
func (c *Collection) Rescan(dir string) ([]string, error) {
	abs, err := pathutil.Normalize(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.DirectoryUnreadable, err, "resolve %s", dir)
	}
	dir = abs

	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.DirectoryUnreadable, err, "list %s", dir)
	}

	entries := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if !pathutil.IsSupported(item.Name()) {
			continue
		}
		entries = append(entries, filepath.Join(dir, item.Name()))
	}
	pathutil.SortPaths(entries)

	c.dir = dir
	c.entries = entries
	c.current = noIndex

	return c.Entries(), nil
}

// SetCurrent points the collection at path.
func (c *Collection) SetCurrent(path string) error {
	i := c.indexOf(path)
	if i < 0 {
		return apperr.Wrap(apperr.PathNotInCollection, nil, "%s", path)
	}
	c.current = i
	return nil
}

// Advance moves one step in direction, wrapping at both ends.
func (c *Collection) Advance(direction Direction) (string, error) {
	n := len(c.entries)
	if n == 0 {
		return "", apperr.Wrap(apperr.EmptyCollectionNavigation, nil, "nothing to navigate in %q", c.dir)
	}

	switch {
	case c.current == noIndex:
		c.current = 0
	case direction == Backward:
		c.current = (c.current - 1 + n) % n
	default:
		c.current = (c.current + 1) % n
	}

	return c.entries[c.current], nil
}

// RenameCurrent computes the path the current image would have under
// newName. It does not touch the filesystem or the entries.
func (c *Collection) RenameCurrent(newName string) (string, error) {
	current, ok := c.Current()
	if !ok {
		return "", apperr.Wrap(apperr.PathNotInCollection, nil, "no current image")
	}

	name := strings.TrimSpace(newName)
	switch {
	case name == "":
		return "", apperr.Wrap(apperr.InvalidName, nil, "name is empty")
	case name == "." || name == "..":
		return "", apperr.Wrap(apperr.InvalidName, nil, "%q is reserved", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return "", apperr.Wrap(apperr.InvalidName, nil, "%q contains a path separator", name)
	}

	return pathutil.Sibling(current, name), nil
}

// ReplaceCurrent swaps the current entry for newPath and re-sorts.
func (c *Collection) ReplaceCurrent(newPath string) error {
	if c.current == noIndex {
		return apperr.Wrap(apperr.PathNotInCollection, nil, "no current image")
	}

	c.entries[c.current] = newPath
	pathutil.SortPaths(c.entries)
	c.current = c.indexOf(newPath)
	return nil
}

// InsertAndSort adds path if missing. The current index follows its image.
func (c *Collection) InsertAndSort(path string) bool {
	if c.indexOf(path) >= 0 {
		return false
	}

	current, hasCurrent := c.Current()
	c.entries = append(c.entries, path)
	pathutil.SortPaths(c.entries)
	if hasCurrent {
		c.current = c.indexOf(current)
	}
	return true
}

// Current returns the current path.
func (c *Collection) Current() (string, bool) {
	if c.current == noIndex || c.current >= len(c.entries) {
		return "", false
	}
	return c.entries[c.current], true
}

// Index returns the zero-based current index or -1.
func (c *Collection) Index() int {
	return c.current
}

func (c *Collection) Len() int {
	return len(c.entries)
}

func (c *Collection) Dir() string {
	return c.dir
}

// Entries returns a copy of the sorted entries.
func (c *Collection) Entries() []string {
	return slices.Clone(c.entries)
}

func (c *Collection) Contains(path string) bool {
	return c.indexOf(path) >= 0
}

func (c *Collection) indexOf(path string) int {
	i, found := slices.BinarySearch(c.entries, path)
	if !found {
		return noIndex
	}
	return i
}
