package env

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves the raw bytes of a panorama source.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, src string) ([]byte, error)

func (fn FetcherFunc) Fetch(ctx context.Context, src string) ([]byte, error) { return fn(ctx, src) }

// DefaultMaxBytes bounds a single download.
const DefaultMaxBytes = 256 << 20

// HTTPFetcher fetches http and https URLs, and reads file:// URLs and bare
// paths from disk. Concurrent fetches of the same source share one
// request.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64

	group singleflight.Group
}

// NewHTTPFetcher returns a fetcher with a one minute request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: time.Minute},
		MaxBytes: DefaultMaxBytes,
	}
}

// Fetch returns the bytes at src. A cancelled ctx returns immediately; the
// shared request keeps running for any other waiter.
func (h *HTTPFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	ch := h.group.DoChan(src, func() (any, error) {
		return h.fetch(context.WithoutCancel(ctx), src)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

func (h *HTTPFetcher) fetch(ctx context.Context, src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse source %q: %w", src, err)
	}
	switch u.Scheme {
	case "http", "https":
		return h.get(ctx, src)
	case "file":
		return h.readFile(u.Path)
	case "":
		return h.readFile(src)
	}
	return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
}

func (h *HTTPFetcher) get(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", src, resp.Status)
	}
	return h.readAll(resp.Body, src)
}

func (h *HTTPFetcher) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.readAll(f, path)
}

func (h *HTTPFetcher) readAll(r io.Reader, src string) ([]byte, error) {
	limit := h.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("read %s: larger than %d bytes", src, limit)
	}
	return data, nil
}
