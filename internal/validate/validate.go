package validate

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"strings"

	"site2apk/internal/blob"
)

const (
	// ArchiveSuffix is the only accepted site archive extension. Matching is case-sensitive.
	ArchiveSuffix = ".zip"
	// IconMediaType is the only accepted launcher icon format.
	IconMediaType = "image/png"
	// IconSize is the required icon width and height in pixels.
	IconSize = 512
)

var (
	ErrWrongArchiveType    = errors.New("archive must be a " + ArchiveSuffix + " file")
	ErrWrongIconType       = errors.New("icon must be a PNG image")
	ErrWrongIconDimensions = fmt.Errorf("icon must be %dx%d pixels", IconSize, IconSize)
	ErrUndecodableIcon     = errors.New("icon image could not be decoded")
)

// InvalidInputKind names the reason a selected file was rejected.
type InvalidInputKind string

const (
	WrongArchiveType    InvalidInputKind = "wrong_archive_type"
	WrongIconType       InvalidInputKind = "wrong_icon_type"
	WrongIconDimensions InvalidInputKind = "wrong_icon_dimensions"
)

// Kind reports which rejection err carries. ok is false for errors that are
// not validator rejections.
func Kind(err error) (InvalidInputKind, bool) {
	switch {
	case errors.Is(err, ErrWrongArchiveType):
		return WrongArchiveType, true
	case errors.Is(err, ErrWrongIconType):
		return WrongIconType, true
	case errors.Is(err, ErrWrongIconDimensions), errors.Is(err, ErrUndecodableIcon):
		return WrongIconDimensions, true
	default:
		return "", false
	}
}

// Archive accepts f iff its name ends with ArchiveSuffix. Content is not inspected.
func Archive(f blob.File) error {
	if f == nil {
		return fmt.Errorf("%w: no file", ErrWrongArchiveType)
	}

	if name := f.Name(); !strings.HasSuffix(name, ArchiveSuffix) {
		return fmt.Errorf("%w: got %q", ErrWrongArchiveType, name)
	}

	return nil
}

type dimensions struct {
	width, height int
	err           error
}

// Icon accepts f iff it is declared as a PNG and decodes to exactly
// IconSize x IconSize pixels. The type check happens before the file is opened.
func Icon(ctx context.Context, f blob.File) error {
	if f == nil {
		return fmt.Errorf("%w: no file", ErrWrongIconType)
	}

	if ct := f.ContentType(); ct != IconMediaType {
		return fmt.Errorf("%w: got %q", ErrWrongIconType, ct)
	}

	result := make(chan dimensions, 1)

	go func() {
		result <- decodeDimensions(f)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("icon decode: %w", ctx.Err())
	case d := <-result:
		if d.err != nil {
			return d.err
		}

		if d.width != IconSize || d.height != IconSize {
			return fmt.Errorf("%w: got %dx%d", ErrWrongIconDimensions, d.width, d.height)
		}

		return nil
	}
}

func decodeDimensions(f blob.File) dimensions {
	rc, err := f.Open()
	if err != nil {
		return dimensions{err: fmt.Errorf("%w: %w", ErrUndecodableIcon, err)}
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return dimensions{err: fmt.Errorf("%w: %w", ErrUndecodableIcon, err)}
	}

	return dimensions{width: cfg.Width, height: cfg.Height}
}
