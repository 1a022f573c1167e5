package session

import (
	"context"
	"image"

	"thera/internal/apperr"
	"thera/internal/upscale"
)

// Presenter receives controller events. Calls arrive outside the
// controller lock and may come from a background goroutine.
type Presenter interface {
	ImageReady(img image.Image)
	ImageCorrupted(path string)
	TitleChanged(name string, index, total int)
	StatusChanged(text string, durationHintMs int)
	EnlargementStarted(req upscale.Request)
	EnlargementFinished(destination string)
	ErrorOccurred(kind apperr.Kind, message string)
}

// Decoder turns a file into pixels for display.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// Enlarger runs one enlargement job end to end: load, enlarge, save.
type Enlarger interface {
	EnlargeFile(ctx context.Context, req upscale.Request) (upscale.Report, error)
}

// DirectoryWatcher follows the tracked directory.
type DirectoryWatcher interface {
	Watch(dir string) error
}

// Confirmer asks the user a yes/no question and reports the answer through
// reply. reply may be called later from another goroutine.
type Confirmer func(question string, reply func(ok bool))
