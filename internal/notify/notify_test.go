package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}

	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Notify(context.Background(), Toast{Title: "one"}))
	require.NoError(t, r.Notify(context.Background(), Toast{Title: "two", Variant: VariantDestructive}))

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Title)
	assert.Len(t, r.Toasts(), 2)
}

func TestConsole(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	c := Console{Out: &buf}

	require.NoError(t, c.Notify(context.Background(), Toast{Title: "Conversion failed", Description: "Build failed", Variant: VariantDestructive}))
	require.NoError(t, c.Notify(context.Background(), Toast{Title: "Done"}))

	assert.Equal(t, "Conversion failed\n  Build failed\nDone\n", buf.String())
}

type failingSink struct{ err error }

func (f failingSink) Notify(context.Context, Toast) error { return f.err }

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	boom := errors.New("boom")

	err := Multi{a, nil, failingSink{boom}, b, NewNtfy("", 0)}.Notify(context.Background(), Toast{Title: "hi"})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.Toasts(), 1)
	assert.Len(t, b.Toasts(), 1)
}

func TestNtfy(t *testing.T) {
	tests := []struct {
		name             string
		toast            Toast
		expectedTags     string
		expectedPriority string
	}{
		{
			name:         "success",
			toast:        Toast{Title: "APK ready", Description: "test.apk downloaded"},
			expectedTags: "site2apk,completed",
		},
		{
			name:             "failure",
			toast:            Toast{Title: "Conversion failed", Description: "Build failed", Variant: VariantDestructive},
			expectedTags:     "site2apk,error",
			expectedPriority: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTitle, gotTags, gotPriority, gotBody string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotTitle = r.Header.Get("Title")
				gotTags = r.Header.Get("Tags")
				gotPriority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
			}))
			t.Cleanup(server.Close)

			n := NewNtfy(server.URL, time.Second)
			require.NotNil(t, n)
			require.NoError(t, n.Notify(context.Background(), tt.toast))

			assert.Equal(t, tt.toast.Title, gotTitle)
			assert.Equal(t, tt.toast.Description, gotBody)
			assert.Equal(t, tt.expectedTags, gotTags)
			assert.Equal(t, tt.expectedPriority, gotPriority)
		})
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic full", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	err := NewNtfy(server.URL, time.Second).Notify(context.Background(), Toast{Title: "x"})
	assert.ErrorContains(t, err, "ntfy returned 429: topic full")
}
