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
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "opscal/internal/log"
)

// Source is one imported ICS feed.
type Source struct {
	// ID tags the imported entries (config ICS id).
	ID string
	// URL is the ICS endpoint.
	URL string
}

// FetchResult contains the outcome of fetching a single ICS source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // body reused from disk after 304 or a failed request
}

// cacheMeta holds HTTP validators for one feed.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads ICS feeds with conditional requests and keeps the last
// good body on disk, so a flaky feed still yields its previous content.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir. A nil client gets a
// 15s timeout default.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// Fetch downloads one feed, honoring ETag and Last-Modified.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("ics: source URL is empty")
	}

	dir := f.cacheDirFor(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FetchResult{}, fmt.Errorf("ics: create cache dir: %w", err)
	}
	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	fromCache := func(reason error) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, reason
		}
		appLog.Warn("ics fetch failed, using cached body", "id", src.ID, "url", redactURL(src.URL), "reason", reason)
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fromCache(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fromCache(err)
		}
		newMeta := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, newMeta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, errors.New("ics: 304 Not Modified without a cached body")
		}
		appLog.Debug("ics fetch not modified", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil

	default:
		return fromCache(fmt.Errorf("ics: unexpected status %s", resp.Status))
	}
}

func (f *Fetcher) cacheDirFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

// saveCache writes the body before the metadata so the validators never
// point at a missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host; private feed URLs carry tokens in
// the path or query.
func redactURL(u string) string {
	const redacted = "/...(redacted)"
	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redacted
}
