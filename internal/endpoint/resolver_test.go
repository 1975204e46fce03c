package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		name        string
		base        string
		location    string
		expected    string
		expectError bool
	}{
		{name: "default path", base: "http://example.com/app/", expected: "http://example.com/func2url.json"},
		{name: "host only base", base: "example.com:8080", location: "/map.json", expected: "http://example.com:8080/map.json"},
		{name: "relative file", base: "https://example.com/app/", location: "map.json", expected: "https://example.com/app/map.json"},
		{name: "absolute location ignores base", location: "https://cdn.example.com/func2url.json", expected: "https://cdn.example.com/func2url.json"},
		{name: "relative without base", location: "/func2url.json", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := resolveLocation(tt.base, tt.location)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, u.String())
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectedURL string
		expectedErr error
	}{
		{
			name:        "key present",
			status:      http.StatusOK,
			body:        `{"html-to-apk":"https://functions.example.com/abc","other":"https://x"}`,
			expectedURL: "https://functions.example.com/abc",
		},
		{
			name:        "key missing",
			status:      http.StatusOK,
			body:        `{"other":"https://x"}`,
			expectedErr: ErrNotConfigured,
		},
		{
			name:        "key blank",
			status:      http.StatusOK,
			body:        `{"html-to-apk":"  "}`,
			expectedErr: ErrNotConfigured,
		},
		{
			name:        "malformed json",
			status:      http.StatusOK,
			body:        `{"html-to-apk":`,
			expectedErr: ErrFetch,
		},
		{
			name:        "not found",
			status:      http.StatusNotFound,
			body:        `missing`,
			expectedErr: ErrFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAccept string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAccept = r.Header.Get("Accept")
				assert.Equal(t, DefaultMapPath, r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			resolver, err := NewResolver(server.URL, "", "")
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			t.Cleanup(cancel)

			got, err := resolver.Resolve(ctx)

			assert.Equal(t, "application/json", gotAccept)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedURL, got)
		})
	}
}

func TestResolver_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	resolver, err := NewResolver(addr, "", "custom-key")
	require.NoError(t, err)
	assert.Equal(t, "custom-key", resolver.Key())

	_, err = resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}
