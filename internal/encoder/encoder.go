package encoder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"site2apk/internal/blob"
)

const defaultMediaType = "application/octet-stream"

var (
	// ErrRead means the file content could not be read in full.
	ErrRead = errors.New("read file")
	// ErrMalformed means a string is neither a base64 data URI nor bare base64.
	ErrMalformed = errors.New("malformed encoded payload")
)

// DataURI renders data as data:<mediaType>;base64,<payload>.
func DataURI(mediaType string, data []byte) string {
	if strings.TrimSpace(mediaType) == "" {
		mediaType = defaultMediaType
	}

	var b strings.Builder

	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))

	return b.String()
}

// Decode accepts a base64 data URI or a bare base64 string and returns the
// media type (empty for bare input) and the original bytes.
func Decode(s string) (string, []byte, error) {
	mediaType := ""
	payload := s

	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return "", nil, fmt.Errorf("%w: data URI without payload", ErrMalformed)
		}

		mt, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return "", nil, fmt.Errorf("%w: data URI is not base64", ErrMalformed)
		}

		mediaType = mt
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return mediaType, data, nil
}

// Task is a lazy, single-shot encoding of one file. Nothing is read until the
// first Wait; every Wait returns the same result.
type Task struct {
	file blob.File
	once sync.Once
	done chan struct{}
	uri  string
	err  error
}

// Encode prepares a Task for f.
func Encode(f blob.File) *Task {
	return &Task{file: f, done: make(chan struct{})}
}

// Start begins reading in the background if it has not started yet.
func (t *Task) Start() {
	t.once.Do(func() {
		go func() {
			defer close(t.done)
			t.uri, t.err = encodeFile(t.file)
		}()
	})
}

// Wait starts the task if needed and blocks until it finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (string, error) {
	t.Start()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("encode %s: %w", t.file.Name(), ctx.Err())
	case <-t.done:
		return t.uri, t.err
	}
}

func encodeFile(f blob.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrRead, f.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrRead, f.Name(), err)
	}

	return DataURI(f.ContentType(), data), nil
}
