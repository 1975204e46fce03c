package blob

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name         string
		fileName     string
		content      []byte
		expectedType string
	}{
		{
			name:         "zip by extension",
			fileName:     "site.zip",
			content:      []byte("PK\x03\x04"),
			expectedType: "application/zip",
		},
		{
			name:         "png by extension",
			fileName:     "icon.png",
			content:      []byte("\x89PNG\r\n\x1a\n"),
			expectedType: "image/png",
		},
		{
			name:         "png sniffed without extension",
			fileName:     "icon",
			content:      []byte("\x89PNG\r\n\x1a\n0000"),
			expectedType: "image/png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.fileName)
			require.NoError(t, os.WriteFile(path, tt.content, 0644))

			f, err := FromPath(path)
			require.NoError(t, err)

			assert.Equal(t, tt.fileName, f.Name())
			assert.Equal(t, tt.expectedType, f.ContentType())
			assert.Equal(t, int64(len(tt.content)), f.Size())

			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tt.content, got)
		})
	}
}

func TestFromPathErrors(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)

	_, err = FromPath(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestFromMultipart(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="iconFile"; filename="icon.png"`)
	h.Set("Content-Type", "image/png; charset=binary")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png bytes"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1024*1024))

	f := FromMultipart(req.MultipartForm.File["iconFile"][0])
	assert.Equal(t, "icon.png", f.Name())
	assert.Equal(t, "image/png", f.ContentType())

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(got))
}
