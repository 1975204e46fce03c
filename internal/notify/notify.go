package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Variant is the severity of a toast.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is one user-facing message.
type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Sink receives toasts.
type Sink interface {
	Notify(ctx context.Context, toast Toast) error
}

// Recorder keeps every toast in memory.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(_ context.Context, toast Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.toasts = append(r.toasts, toast)

	return nil
}

// Toasts returns a copy of everything recorded so far.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.toasts) == 0 {
		return Toast{}, false
	}

	return r.toasts[len(r.toasts)-1], true
}

// Console prints toasts to a terminal, destructive ones in red.
type Console struct {
	Out io.Writer
}

func (c Console) Notify(_ context.Context, toast Toast) error {
	title := color.New(color.FgGreen, color.Bold)
	if toast.Variant == VariantDestructive {
		title = color.New(color.FgRed, color.Bold)
	}

	if _, err := title.Fprintln(c.Out, toast.Title); err != nil {
		return fmt.Errorf("write toast: %w", err)
	}

	if toast.Description != "" {
		if _, err := fmt.Fprintln(c.Out, "  "+toast.Description); err != nil {
			return fmt.Errorf("write toast: %w", err)
		}
	}

	return nil
}

// Multi fans a toast out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, toast Toast) error {
	var errs []error

	for _, s := range m {
		if s == nil {
			continue
		}

		if err := s.Notify(ctx, toast); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

const ntfyUserAgent = "site2apk/1.0"

// Ntfy forwards toasts to an ntfy topic URL.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

// NewNtfy returns nil when topic is blank, so callers can drop it into Multi unconditionally.
func NewNtfy(topic string, timeout time.Duration) *Ntfy {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Ntfy{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

func (n *Ntfy) Notify(ctx context.Context, toast Toast) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(toast.Description))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}

	req.Header.Set("User-Agent", ntfyUserAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", toast.Title)

	tags := []string{"site2apk"}
	if toast.Variant == VariantDestructive {
		tags = append(tags, "error")
		req.Header.Set("Priority", "high")
	} else {
		tags = append(tags, "completed")
	}

	req.Header.Set("Tags", strings.Join(tags, ","))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
