package encoder

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site2apk/internal/blob"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	large := make([]byte, 3*1024*1024+7)
	_, _ = rng.Read(large)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "single byte", data: []byte{0x00}},
		{name: "padding boundary", data: []byte("ab")},
		{name: "all byte values", data: allBytes()},
		{name: "large random", data: large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := Encode(blob.FromBytes("f.bin", "application/zip", tt.data)).Wait(context.Background())
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(uri, "data:application/zip;base64,"))

			mediaType, got, err := Decode(uri)
			require.NoError(t, err)
			assert.Equal(t, "application/zip", mediaType)
			assert.Equal(t, len(tt.data), len(got))
			assert.True(t, string(tt.data) == string(got), "decoded bytes differ")
		})
	}
}

func allBytes() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}

	return out
}

func TestDataURIDefaultsMediaType(t *testing.T) {
	assert.Equal(t, "data:application/octet-stream;base64,QUJD", DataURI("", []byte("ABC")))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedType  string
		expectedData  string
		expectedError bool
	}{
		{name: "bare base64", input: "QUJD", expectedData: "ABC"},
		{name: "data uri", input: "data:image/png;base64,QUJD", expectedType: "image/png", expectedData: "ABC"},
		{name: "data uri without comma", input: "data:image/png;base64", expectedError: true},
		{name: "data uri not base64", input: "data:text/plain,hello", expectedError: true},
		{name: "invalid base64", input: "***", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, data, err := Decode(tt.input)

			if tt.expectedError {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, mediaType)
			assert.Equal(t, tt.expectedData, string(data))
		})
	}
}

type countingFile struct {
	blob.File
	opens atomic.Int32
}

func (f *countingFile) Open() (io.ReadCloser, error) {
	f.opens.Add(1)
	return f.File.Open()
}

func TestTaskIsLazyAndSingleShot(t *testing.T) {
	f := &countingFile{File: blob.FromBytes("site.zip", "application/zip", []byte("zip"))}

	task := Encode(f)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), f.opens.Load(), "task must not read before Wait")

	first, err := task.Wait(context.Background())
	require.NoError(t, err)

	second, err := task.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.opens.Load())
}

type failingFile struct {
	blob.File
	openErr error
	readErr error
}

func (f failingFile) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}

	return io.NopCloser(errReader{f.readErr}), nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestTaskReadFailures(t *testing.T) {
	base := blob.FromBytes("site.zip", "application/zip", nil)

	tests := []struct {
		name string
		file blob.File
	}{
		{name: "open fails", file: failingFile{File: base, openErr: errors.New("file vanished")}},
		{name: "read fails", file: failingFile{File: base, readErr: errors.New("i/o error")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := Encode(tt.file).Wait(context.Background())
			require.ErrorIs(t, err, ErrRead)
			assert.Empty(t, uri)
		})
	}
}

type parkedFile struct {
	blob.File
	release chan struct{}
}

func (f parkedFile) Open() (io.ReadCloser, error) {
	<-f.release
	return nil, errors.New("released")
}

func TestTaskWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Encode(parkedFile{
		File:    blob.FromBytes("site.zip", "application/zip", nil),
		release: release,
	}).Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
