package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultMapPath is where the endpoint map lives relative to the remote base URL.
	DefaultMapPath = "/func2url.json"
	// DefaultKey names the conversion function in the endpoint map.
	DefaultKey = "html-to-apk"

	defaultUserAgent = "site2apk/1.0"
	fetchTimeout     = 10 * time.Second
)

var (
	// ErrFetch covers transport failures, error statuses and malformed JSON.
	ErrFetch = errors.New("endpoint map unavailable")
	// ErrNotConfigured means the map loaded but lacks the requested key.
	ErrNotConfigured = errors.New("endpoint not configured")
)

// Map translates logical operation names into invocable URLs.
type Map map[string]string

// Resolver loads the endpoint map and looks up one key. Every call to
// Resolve fetches the map again; nothing is cached between attempts.
type Resolver struct {
	mapURL    *url.URL
	key       string
	http      *http.Client
	userAgent string
}

// NewResolver builds a Resolver. mapLocation may be absolute or relative to base.
func NewResolver(base, mapLocation, key string) (*Resolver, error) {
	target, err := resolveLocation(base, mapLocation)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}

	return &Resolver{
		mapURL:    target,
		key:       key,
		http:      &http.Client{Timeout: fetchTimeout},
		userAgent: defaultUserAgent,
	}, nil
}

// WithHTTPClient replaces the transport; tests use it with httptest servers.
func (r *Resolver) WithHTTPClient(c *http.Client) *Resolver {
	r.http = c
	return r
}

// Key returns the operation name this resolver looks up.
func (r *Resolver) Key() string { return r.key }

// MapURL returns the location the endpoint map is fetched from.
func (r *Resolver) MapURL() string { return r.mapURL.String() }

// Resolve fetches the map and returns the address for the configured key.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	m, err := r.Fetch(ctx)
	if err != nil {
		return "", err
	}

	target := strings.TrimSpace(m[r.key])
	if target == "" {
		return "", fmt.Errorf("%w: %q missing from %s", ErrNotConfigured, r.key, r.mapURL)
	}

	slog.Debug("Resolved endpoint", "component", "endpoint", "key", r.key, "url", target)

	return target, nil
}

// Fetch loads the whole endpoint map.
func (r *Resolver) Fetch(ctx context.Context) (Map, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.mapURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrFetch, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, r.mapURL, resp.StatusCode)
	}

	var m Map
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrFetch, err)
	}

	return m, nil
}

func resolveLocation(base, location string) (*url.URL, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		location = DefaultMapPath
	}

	ref, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint map location %q: %w", location, err)
	}

	if ref.IsAbs() {
		return ref, nil
	}

	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("endpoint map location %q is relative and no base URL is set", location)
	}

	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", base, err)
	}

	return baseURL.ResolveReference(ref), nil
}
