package env

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	payload := solidRGBE(8, 4, 128, 128, 128)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/env.hdr" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "env.hdr")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{"http", srv.URL + "/env.hdr", false},
		{"http not found", srv.URL + "/missing.hdr", true},
		{"file url", "file://" + path, false},
		{"bare path", path, false},
		{"missing file", filepath.Join(dir, "nope.hdr"), true},
		{"unsupported scheme", "ftp://example.com/env.hdr", true},
	}
	h := NewHTTPFetcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := h.Fetch(context.Background(), tt.src)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !bytes.Equal(data, payload) {
				t.Errorf("got %d bytes, want %d", len(data), len(payload))
			}
		})
	}
}

func TestHTTPFetcherSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	t.Cleanup(srv.Close)

	h := NewHTTPFetcher()
	h.MaxBytes = 100
	if _, err := h.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected an error for an oversized body")
	}
}

func TestHTTPFetcherCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := NewHTTPFetcher().Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
