package netcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(t.TempDir())
	c.Backoff = time.Millisecond
	return c
}

func TestGetRevalidatesWithETag(t *testing.T) {
	var full, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("# Title\n"))
	}))
	defer srv.Close()

	c := newTestCache(t)
	ctx := context.Background()

	path, cached, err := c.Get(ctx, srv.URL+"/doc.md")
	if err != nil || cached {
		t.Fatalf("first get: cached=%v err=%v", cached, err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "# Title\n" {
		t.Fatalf("cached payload %q, %v", b, err)
	}

	path2, cached, err := c.Get(ctx, srv.URL+"/doc.md")
	if err != nil || !cached || path2 != path {
		t.Fatalf("second get: path=%s cached=%v err=%v", path2, cached, err)
	}
	if full.Load() != 1 || notModified.Load() != 1 {
		t.Fatalf("full=%d notModified=%d", full.Load(), notModified.Load())
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	b, err := newTestCache(t).Fetch(context.Background(), srv.URL)
	if err != nil || string(b) != "ok" {
		t.Fatalf("got %q, %v", b, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, _, err := newTestCache(t).Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestGetFallsBackToCacheWhenOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"x"`)
		w.Write([]byte("body"))
	}))
	c := newTestCache(t)
	url := srv.URL + "/a"
	if _, _, err := c.Get(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	srv.Close()

	b, err := c.Fetch(context.Background(), url)
	if err != nil || string(b) != "body" {
		t.Fatalf("got %q, %v", b, err)
	}
}
