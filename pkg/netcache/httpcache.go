// Package netcache is a small persistent HTTP cache used for remote
// markdown sources.
package netcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// Cache provides a simple persistent HTTP cache with ETag/Last-Modified support.
type Cache struct {
	Dir    string
	Client *http.Client
	// Attempts is the number of full fetches tried before giving up.
	Attempts int
	// Backoff is the wait before the second attempt; it doubles after each
	// failure.
	Backoff time.Duration
	Logger  *slog.Logger
}

// New returns a new Cache with a reasonable default HTTP client.
func New(dir string) *Cache {
	return &Cache{
		Dir: dir,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		Attempts: 3,
		Backoff:  2 * time.Second,
		Logger:   slog.Default(),
	}
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	// DataFile is the basename of the cached payload file
	DataFile string `json:"data_file"`
}

// Get fetches the URL into the cache and returns a local file path.
// If the cache is valid, it is reused without downloading.
// Returns (path, fromCache, error).
func (c *Cache) Get(ctx context.Context, url string) (string, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	m, haveMeta := c.readMeta(mpath, url)

	// If we have metadata, try a conditional GET
	if haveMeta {
		path, fresh, err := c.revalidate(ctx, url, mpath, m)
		if err == nil {
			return path, fresh, nil
		}
		// Reuse the cached file when the server cannot be reached.
		c.Logger.Warn("revalidation failed, using cached copy", "url", url, "error", err)
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}

	// Full fetch with simple retry/backoff on network errors or 5xx
	attempts := max(1, c.Attempts)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(c.Backoff << (attempt - 1)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", false, err
		}
		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		path, err := c.store(resp, url, key, mpath)
		if err == nil {
			return path, false, nil
		}
		lastErr = err
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors will not go away on retry.
			break
		}
	}
	return "", false, lastErr
}

// Fetch is Get followed by reading the cached payload.
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	path, _, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (c *Cache) readMeta(mpath, url string) (meta, bool) {
	var m meta
	b, err := os.ReadFile(mpath)
	if err != nil {
		return m, false
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, false
	}
	// Validate basic consistency
	if m.URL != url || m.DataFile == "" || !fileExists(filepath.Join(c.Dir, m.DataFile)) {
		return m, false
	}
	return m, true
}

func (c *Cache) revalidate(ctx context.Context, url, mpath string, m meta) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	if m.ETag != "" {
		req.Header.Set("If-None-Match", m.ETag)
	}
	if m.LastModified != "" {
		req.Header.Set("If-Modified-Since", m.LastModified)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", false, err
	}
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}
	path, err := c.store(resp, url, hash(url), mpath)
	return path, false, err
}

// store writes a successful response body into the cache and closes it.
func (c *Cache) store(resp *http.Response, url, key, mpath string) (string, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", err
	}
	dataFile := key + ".data"
	path := filepath.Join(c.Dir, dataFile)
	if err := atomic.WriteFile(path, resp.Body); err != nil {
		return "", err
	}
	nm := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		DataFile:     dataFile,
	}
	if err := writeMeta(mpath, nm); err != nil {
		return "", err
	}
	c.Logger.Debug("cached remote file", "url", url, "path", path)
	return path, nil
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
