package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUserAgent = "site2apk/1.0"
	jsonMediaType    = "application/json"
	maxResponseBytes = 512 * 1024 * 1024
)

var (
	// ErrNetwork means the build service could not be reached.
	ErrNetwork = errors.New("build service unreachable")
	// ErrMalformedResponse means a success status came back without a JSON body.
	ErrMalformedResponse = errors.New("unexpected response format")
)

// RemoteError is a failure reported by the build service itself.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("build service returned status %d", e.Status)
	}

	return fmt.Sprintf("build service returned status %d: %s", e.Status, e.Message)
}

// Payload is the JSON request body. Both files are data URIs.
type Payload struct {
	AppName    string `json:"appName"`
	AppVersion string `json:"appVersion"`
	ZipFile    string `json:"zipFile"`
	IconFile   string `json:"iconFile"`
}

// Response is the JSON body the build service answers with.
type Response struct {
	Success  bool   `json:"success,omitempty"`
	APKFile  string `json:"apkFile,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Note     string `json:"note,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is a successful build.
type Result struct {
	APKFile  string
	FileName string
	Note     string
}

// Client posts conversion requests to the build service.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// NewClient builds a Client. A zero timeout leaves the request bounded only by ctx.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:      &http.Client{},
		timeout:   timeout,
		userAgent: defaultUserAgent,
	}
}

// WithHTTPClient replaces the transport.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Build issues exactly one POST to target. It never retries.
func (c *Client) Build(ctx context.Context, target string, payload Payload) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)

		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", jsonMediaType)
	req.Header.Set("Accept", jsonMediaType)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return interpret(resp)
}

func interpret(resp *http.Response) (Result, error) {
	isJSON := isJSONMediaType(resp.Header.Get("Content-Type"))

	var decoded Response

	var decodeErr error

	if isJSON {
		decodeErr = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(decoded.Error)}
	}

	if !isJSON {
		return Result{}, fmt.Errorf("%w: content type %q", ErrMalformedResponse, resp.Header.Get("Content-Type"))
	}

	if decodeErr != nil {
		return Result{}, fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, decodeErr)
	}

	if decoded.APKFile == "" {
		return Result{}, &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(decoded.Error)}
	}

	return Result{
		APKFile:  decoded.APKFile,
		FileName: strings.TrimSpace(decoded.FileName),
		Note:     strings.TrimSpace(decoded.Note),
	}, nil
}

func isJSONMediaType(raw string) bool {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return false
	}

	return mt == jsonMediaType
}
