package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "ctlcal/internal/log"
	"ctlcal/internal/metrics"
)

// FetchResult contains the outcome of fetching the feed.
type FetchResult struct {
	URL       string
	Body      []byte // JSON payload (either freshly fetched or from cache)
	FromCache bool   // true if the body came from disk rather than the network
}

// cacheEntry holds HTTP cache metadata for the feed URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches the feed with conditional requests (ETag / Last-Modified),
// bounded retries, and a disk-backed copy of the last good body.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	retries  int
	backoff  time.Duration
}

// NewFetcher creates a Fetcher storing its cache under cacheDir. retries is
// the number of extra attempts after a network error or 5xx.
func NewFetcher(cacheDir string, retries int) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	if retries < 0 {
		retries = 0
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		retries:  retries,
		backoff:  500 * time.Millisecond,
	}
}

// Fetch downloads url. On failure it falls back to the cached body when one
// exists, so callers only see an error when nothing usable is available.
func (f *Fetcher) Fetch(ctx context.Context, url string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}

	cachePath, err := f.cachePathForURL(url)
	if err != nil {
		return FetchResult{}, err
	}
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)
	if len(cachedBody) == 0 {
		// Conditional headers without a body to fall back on would turn a
		// 304 into a dead end.
		meta = cacheEntry{}
	}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return f.fallback(url, cachedBody, ctx.Err())
			case <-time.After(f.backoff * time.Duration(attempt)):
			}
		}

		res, retry, err := f.fetchOnce(ctx, url, cachePath, meta, cachedBody)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			break
		}
		appLog.Error("feed fetch attempt failed", err, "url", redactURL(url), "attempt", attempt+1)
	}

	return f.fallback(url, cachedBody, lastErr)
}

func (f *Fetcher) fallback(url string, cachedBody []byte, cause error) (FetchResult, error) {
	if len(cachedBody) > 0 {
		appLog.Error("feed fetch failed, using cached body", cause, "url", redactURL(url))
		metrics.FeedFetches.WithLabelValues(metrics.FetchCached).Inc()
		return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil
	}
	metrics.FeedFetches.WithLabelValues(metrics.FetchFailed).Inc()
	return FetchResult{}, fmt.Errorf("fetch feed: %w", cause)
}

// fetchOnce performs a single request. retry reports whether the failure is
// worth another attempt.
func (f *Fetcher) fetchOnce(ctx context.Context, url, cachePath string, meta cacheEntry, cachedBody []byte) (res FetchResult, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, false, err
	}
	req.Header.Set("Accept", "application/json")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("feed fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, true, readErr
		}

		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("feed cache save failed", err, "url", redactURL(url))
		}

		appLog.Info("feed fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
		metrics.FeedFetches.WithLabelValues(metrics.FetchFresh).Inc()
		return FetchResult{URL: url, Body: body}, false, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, false, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("feed not modified; using cache", "url", redactURL(url))
		metrics.FeedFetches.WithLabelValues(metrics.FetchNotModified).Inc()
		return FetchResult{URL: url, Body: cachedBody, FromCache: true}, false, nil

	default:
		return FetchResult{}, resp.StatusCode >= 500, errors.New(resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}
	sum := sha256.Sum256([]byte(url))
	// Use first 16 hex chars as directory name.
	dir := hex.EncodeToString(sum[:8])
	return filepath.Join(f.cacheDir, dir), nil
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
	// Write body first so meta never points at missing body.
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

// redactURL keeps only scheme and host of u for logging.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "feed://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
