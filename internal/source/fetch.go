package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "swintt/internal/log"
)

// ErrNotModifiedNoCache is returned when the server answers 304 but the
// disk cache has no body to reuse.
var ErrNotModifiedNoCache = errors.New("received 304 Not Modified but no cached body available")

// FetchResult contains the outcome of fetching one course timetable.
type FetchResult struct {
	Course    string
	Body      []byte // JSON payload, either freshly fetched or from cache
	FromCache bool   // true if the cached body was reused
}

// cacheEntry holds HTTP cache metadata for a single timetable URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads "<base>/<CODE>_timetable.json" files with HTTP
// conditional requests (ETag / Last-Modified) and a disk-backed cache.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	cacheDir string
}

// NewFetcher creates a Fetcher for timetables published under baseURL.
// cacheDir holds one subdirectory per URL; empty means "./var/timetable-cache".
func NewFetcher(baseURL, cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/timetable-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
	}
}

// CourseURL is where the timetable of code is published.
func (f *Fetcher) CourseURL(code string) string {
	return f.baseURL + "/" + url.PathEscape(code) + "_timetable.json"
}

// FetchCourse fetches one course timetable, honoring ETag and
// Last-Modified, and falls back to the cached body on network errors and
// non-OK statuses.
func (f *Fetcher) FetchCourse(ctx context.Context, code string) (FetchResult, error) {
	if f.baseURL == "" {
		return FetchResult{}, errors.New("source: base URL is empty")
	}
	if code == "" {
		return FetchResult{}, errors.New("source: course code is empty")
	}
	src := f.CourseURL(code)

	cachePath := f.cachePathForURL(src)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("timetable fetch start", "course", code, "url", src)

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("timetable fetch network error, using cached body", err, "course", code)
			return FetchResult{Course: code, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("source: fetch %s: %w", code, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		newMeta := cacheEntry{
			URL:          src,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("timetable cache save failed", err, "course", code)
		}

		appLog.Info("timetable fetch success", "course", code, "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Course: code, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, ErrNotModifiedNoCache
		}
		appLog.Debug("timetable not modified; using cache", "course", code)
		return FetchResult{Course: code, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("timetable fetch non-OK, using cached body", errors.New(resp.Status), "course", code, "status", resp.StatusCode)
			return FetchResult{Course: code, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("source: fetch %s: %s", code, resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// First 16 hex chars are plenty to keep URLs apart.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
