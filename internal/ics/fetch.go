package ics

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

	appLog "ics2org/internal/log"
)

var (
	// ErrEmptySource is returned for a Source without a location.
	ErrEmptySource = errors.New("source URL is empty")
	// ErrNotModifiedNoCache is returned when the server answers 304 but
	// nothing is cached for the URL.
	ErrNotModifiedNoCache = errors.New("received 304 Not Modified but no cached body available")
)

// Source is one calendar to convert: a local path, a file:// URL or an
// http(s)/webcal subscription.
type Source struct {
	// ID identifies the source in logs, metrics and the HTTP API.
	ID string
	// URL is the path or URL of the calendar.
	URL string
}

// IsRemote reports whether the source has to be fetched over HTTP.
func (s Source) IsRemote() bool {
	u := strings.ToLower(s.URL)
	return strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "webcal://")
}

// httpURL rewrites webcal:// to https://, the way calendar clients do.
func (s Source) httpURL() string {
	if strings.HasPrefix(strings.ToLower(s.URL), "webcal://") {
		return "https://" + s.URL[len("webcal://"):]
	}
	return s.URL
}

// localPath strips an optional file:// prefix.
func (s Source) localPath() string {
	return strings.TrimPrefix(s.URL, "file://")
}

// FetchResult contains the outcome of fetching a single ICS source.
type FetchResult struct {
	Source    Source
	Body      []byte // ICS payload (from disk, network or cache)
	FromCache bool   // true if we reused the cached body
}

// cacheEntry holds HTTP cache metadata for a single ICS URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher reads local calendars from disk and fetches remote ones with
// HTTP caching (ETag / Last-Modified) backed by a disk cache.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a new Fetcher.
//
// cacheDir is the base directory where per-URL cache subdirectories and
// metadata will be stored. Example: "./cache/ics-cache".
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./cache/ics-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// WithClient replaces the HTTP client, e.g. for tests.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchOne returns the body of a single source. Local files are read
// directly; remote sources honor ETag and Last-Modified and use a disk cache
// under f.cacheDir keyed by a hash of the URL.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, ErrEmptySource
	}
	if !src.IsRemote() {
		return f.readLocal(src)
	}
	return f.fetchRemote(ctx, src)
}

func (f *Fetcher) readLocal(src Source) (FetchResult, error) {
	path := src.localPath()
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FetchResult{}, fmt.Errorf("file %q does not exist: %w", path, err)
		}
		return FetchResult{}, fmt.Errorf("reading %q: %w", path, err)
	}
	appLog.Debug("ics read from disk", "id", src.ID, "path", path, "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, src Source) (FetchResult, error) {
	target := src.httpURL()
	redacted := redactURL(target)

	cachePath := f.cachePathForURL(target)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, fmt.Errorf("creating cache dir: %w", err)
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	// fallback serves the cached body when the network cannot.
	fallback := func(cause error) (FetchResult, error) {
		if len(cachedBody) == 0 {
			return FetchResult{}, cause
		}
		appLog.Error("ics fetch failed, using cached body", cause, "id", src.ID, "url", redacted)
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("ics fetch start", "id", src.ID, "url", redacted)

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fallback(fmt.Errorf("reading response: %w", err))
		}

		newMeta := cacheEntry{
			URL:          target,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// The fresh body is still good without a cache entry.
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redacted)
		}

		appLog.Info("ics fetch success", "id", src.ID, "url", redacted, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, ErrNotModifiedNoCache
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID, "url", redacted)
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		return fallback(fmt.Errorf("fetching %s: %s", redacted, resp.Status))
	}
}

// cachePathForURL names the cache directory after the first 16 hex chars of
// the URL's SHA-256.
func (f *Fetcher) cachePathForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

const (
	cacheMetaFile = "meta.json"
	cacheBodyFile = "body.ics"
)

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, cacheMetaFile))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, cacheBodyFile))
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	if err := os.WriteFile(filepath.Join(cachePath, cacheBodyFile), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, cacheMetaFile), data, 0o600)
}

// redactURL reduces a remote URL to scheme and host so tokens in paths or
// query strings never reach the logs. Local paths are returned unchanged.
func redactURL(u string) string {
	if !(Source{URL: u}).IsRemote() {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
