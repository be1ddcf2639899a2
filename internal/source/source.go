// Package source fetches the roster workbook bytes from a local path or an
// http(s) URL.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// MaxBytes caps the size of a fetched workbook.
const MaxBytes int64 = 64 << 20

// Fetcher reads workbook bytes.
type Fetcher struct {
	client *http.Client
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the client used for remote locations.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// New returns a Fetcher. The default client sets no deadline; a remote
// fetch ends only when the caller's context does.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	lower := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetch returns the bytes at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("source: no input configured")
	}
	if !IsRemote(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("source: read %s: %w", location, err)
		}
		return data, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: fetch %s: status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("source: read body: %w", err)
	}
	if int64(len(data)) > MaxBytes {
		return nil, fmt.Errorf("source: %s exceeds %d bytes", location, MaxBytes)
	}
	return data, nil
}
