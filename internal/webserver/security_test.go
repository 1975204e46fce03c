package webserver

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var b bytes.Buffer

	writer := multipart.NewWriter(&b)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1024*1024))

	_, header, err := req.FormFile("file")
	require.NoError(t, err)

	return header
}

func TestSecurity(t *testing.T) {
	t.Run("ValidateFileUpload", func(t *testing.T) {
		tests := []struct {
			name        string
			filename    string
			content     string
			maxSize     int64
			expectError bool
			errorMatch  string
		}{
			{
				name:     "valid archive",
				filename: "site.zip",
				content:  "PK\x03\x04",
				maxSize:  1024,
			},
			{
				name:        "too large",
				filename:    "site.zip",
				content:     strings.Repeat("x", 2048),
				maxSize:     1024,
				expectError: true,
				errorMatch:  "too large",
			},
			{
				name:     "double dot inside name",
				filename: "my..site.zip",
				content:  "PK",
			},
			{
				name:     "empty file",
				filename: "icon.png",
				content:  "",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				header := formFileHeader(t, tt.filename, tt.content)

				err := ValidateFileUpload(header, tt.maxSize)
				if tt.expectError {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.errorMatch)
				} else {
					assert.NoError(t, err)
				}
			})
		}

		assert.Error(t, ValidateFileUpload(nil, 0))
		assert.ErrorContains(t, ValidateFileUpload(&multipart.FileHeader{Filename: "  ", Size: 1}, 0), "cannot be empty")
		assert.ErrorContains(t, ValidateFileUpload(&multipart.FileHeader{Filename: "../site.zip", Size: 1}, 0), "path separators")
		assert.ErrorContains(t, ValidateFileUpload(&multipart.FileHeader{Filename: `dir\\site.zip`, Size: 1}, 0), "path separators")
	})

	t.Run("SanitizeFilename", func(t *testing.T) {
		tests := []struct {
			input    string
			expected string
		}{
			{"test.apk", "test.apk"},
			{"../../../etc/passwd", "etcpasswd"},
			{"file/with\\slashes.apk", "filewithslashes.apk"},
			{"file:with*dangerous?chars.apk", "filewithdangerouschars.apk"},
			{"quote\"d\r\n.apk", "quoted.apk"},
			{"", "app.apk"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		}
	})

	t.Run("CSRFToken", func(t *testing.T) {
		token1, err := GenerateCSRFToken()
		require.NoError(t, err)
		token2, err := GenerateCSRFToken()
		require.NoError(t, err)

		assert.Len(t, token1, CSRFTokenLength*2)
		assert.NotEqual(t, token1, token2)

		req := httptest.NewRequest("POST", "/", strings.NewReader("csrf_token="+token1))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.True(t, ValidateCSRFToken(req, token1))
		assert.False(t, ValidateCSRFToken(req, token2))

		headerReq := httptest.NewRequest("POST", "/", nil)
		headerReq.Header.Set("X-CSRF-Token", token2)
		assert.True(t, ValidateCSRFToken(headerReq, token2))

		empty := httptest.NewRequest("POST", "/", nil)
		assert.False(t, ValidateCSRFToken(empty, ""))
	})

	t.Run("CSRFCookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		SetCSRFTokenCookie(w, "abc", false)

		req := httptest.NewRequest("GET", "/", nil)
		for _, c := range w.Result().Cookies() {
			req.AddCookie(c)
		}

		assert.Equal(t, "abc", GetCSRFTokenFromCookie(req))
		assert.Empty(t, GetCSRFTokenFromCookie(httptest.NewRequest("GET", "/", nil)))
	})
}
