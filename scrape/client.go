// Package scrape is the HTTP fetch helper runners use to read their
// sources. Fetches go through a store-backed cache so repeated harness
// invocations inside the cache window do not re-hit sources.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/crier/metrics"
)

const (
	// DefaultTTL is the cache freshness window.
	DefaultTTL = 1 * time.Hour
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies the harness to scraped sources.
	DefaultUserAgent = "crier (+https://github.com/pithecene-io/crier)"

	// maxFetchBytes caps a response body (8 MiB).
	maxFetchBytes = 8 * 1024 * 1024

	// pruneAge is how old a cache entry must be before PruneCache
	// removes it.
	pruneAge = 7 * 24 * time.Hour
)

// Page is one fetched document.
type Page struct {
	URL       string
	Status    int
	Body      []byte
	FetchedAt time.Time
	FromCache bool
}

// StatusError reports a non-2xx fetch response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scrape: %s returned status %d", e.URL, e.Code)
}

// Config configures a Client.
type Config struct {
	// TTL is the cache freshness window. 0 means DefaultTTL.
	TTL time.Duration
	// Timeout bounds a single fetch. 0 means DefaultTimeout.
	Timeout time.Duration
	// UserAgent overrides DefaultUserAgent when set.
	UserAgent string
}

// Client fetches pages with a persistent cache in front of the
// network. A nil cache disables caching entirely.
type Client struct {
	config    Config
	http      *http.Client
	cache     *Cache
	collector *metrics.Collector
}

// New creates a Client. cache and collector may be nil.
func New(cfg Config, cache *Cache, collector *metrics.Collector) *Client {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		config:    cfg,
		http:      &http.Client{Timeout: cfg.Timeout},
		cache:     cache,
		collector: collector,
	}
}

// Get returns the page at url, from cache when fresh. Non-2xx
// responses surface as *StatusError and are not cached.
func (c *Client) Get(ctx context.Context, url string) (*Page, error) {
	if c.cache != nil {
		if page, ok := c.cache.get(ctx, url, c.config.TTL); ok {
			c.collector.IncFetchHit()
			return page, nil
		}
	}
	c.collector.IncFetchMiss()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("scrape: read %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	page := &Page{
		URL:       url,
		Status:    resp.StatusCode,
		Body:      body,
		FetchedAt: time.Now(),
	}
	if c.cache != nil {
		// Cache writes are best effort.
		_ = c.cache.put(ctx, page)
	}
	return page, nil
}

// PruneCache drops cache entries old enough to be useless. No-op
// without a cache.
func (c *Client) PruneCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Prune(ctx, pruneAge)
}
