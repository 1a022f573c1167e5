// Error kinds shared by the collection, engine and session layers
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the presentation layer.
type Kind int

const (
	Unknown Kind = iota
	DirectoryUnreadable
	PathNotInCollection
	InvalidName
	RenameFailed
	WriteFailure
	InferenceFailure
	UnsupportedFormat
	EmptyCollectionNavigation
)

var kindNames = map[Kind]string{
	Unknown:                   "Unknown",
	DirectoryUnreadable:       "DirectoryUnreadable",
	PathNotInCollection:       "PathNotInCollection",
	InvalidName:               "InvalidName",
	RenameFailed:              "RenameFailed",
	WriteFailure:              "WriteFailure",
	InferenceFailure:          "InferenceFailure",
	UnsupportedFormat:         "UnsupportedFormat",
	EmptyCollectionNavigation: "EmptyCollectionNavigation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	ErrDirectoryUnreadable       = errors.New("directory unreadable")
	ErrPathNotInCollection       = errors.New("path not in collection")
	ErrInvalidName               = errors.New("invalid name")
	ErrRenameFailed              = errors.New("rename failed")
	ErrWriteFailure              = errors.New("write failure")
	ErrInferenceFailure          = errors.New("inference failure")
	ErrUnsupportedFormat         = errors.New("unsupported format")
	ErrEmptyCollectionNavigation = errors.New("empty collection")
)

var sentinels = []struct {
	err  error
	kind Kind
}{
	{ErrDirectoryUnreadable, DirectoryUnreadable},
	{ErrPathNotInCollection, PathNotInCollection},
	{ErrInvalidName, InvalidName},
	{ErrRenameFailed, RenameFailed},
	{ErrWriteFailure, WriteFailure},
	{ErrInferenceFailure, InferenceFailure},
	{ErrUnsupportedFormat, UnsupportedFormat},
	{ErrEmptyCollectionNavigation, EmptyCollectionNavigation},
}

// KindOf returns the kind of the first sentinel found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return Unknown
}

// Wrap tags cause with the sentinel of kind. The result matches both the
// sentinel and cause under errors.Is.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	sentinel := sentinelFor(kind)
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, msg, cause)
}

func sentinelFor(kind Kind) error {
	for _, s := range sentinels {
		if s.kind == kind {
			return s.err
		}
	}
	return errors.New("unknown failure")
}
