package validate

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"site2apk/internal/blob"
)

// ErrMissingIndex means the archive has no index.html at its root or
// directly inside a single top-level folder. The build service rejects such
// archives; this check only warns early.
var ErrMissingIndex = errors.New("archive must contain index.html at its root")

// ErrUnreadableArchive means the file is not a readable zip.
var ErrUnreadableArchive = errors.New("archive could not be read")

// ArchiveContents inspects the zip directory of f. It is advisory and not
// part of the submit gate.
func ArchiveContents(f blob.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadableArchive, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadableArchive, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadableArchive, err)
	}

	for _, entry := range zr.File {
		if isRootIndex(entry.Name) {
			return nil
		}
	}

	return ErrMissingIndex
}

func isRootIndex(name string) bool {
	if name == "index.html" {
		return true
	}

	return strings.HasSuffix(name, "/index.html") && strings.Count(name, "/") == 1
}
