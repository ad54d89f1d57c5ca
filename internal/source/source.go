// Package source loads playlist text from stdin, a file or an HTTP URL.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Stdin is the location that reads standard input.
const Stdin = "-"

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 30 * time.Second

// Loader opens playlist locations.
type Loader struct {
	Client *http.Client
	Stdin  io.Reader
}

// New creates a loader with the default HTTP client timeout.
func New() *Loader {
	return &Loader{
		Client: &http.Client{Timeout: DefaultTimeout},
		Stdin:  os.Stdin,
	}
}

// Open returns a reader for location: "-" for stdin, an http or https URL,
// or a file path. The caller closes the reader.
func (l *Loader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("location cannot be empty")
	}

	if location == Stdin {
		return io.NopCloser(l.Stdin), nil
	}

	if isRemote(location) {
		return l.fetch(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}
	return f, nil
}

// Read returns the whole content of location.
func (l *Loader) Read(ctx context.Context, location string) (string, error) {
	rc, err := l.Open(ctx, location)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}
	return string(data), nil
}

func (l *Loader) fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch playlist: HTTP %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func isRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// Open opens location with a default loader.
func Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return New().Open(ctx, location)
}

// Read reads location with a default loader.
func Read(ctx context.Context, location string) (string, error) {
	return New().Read(ctx, location)
}
