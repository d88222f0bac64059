package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/crier/store"
)

// cacheTable holds one msgpack-encoded envelope per fetched URL. The
// fetched_at column is duplicated outside the blob so pruning can run
// without decoding.
const cacheTable = "fetch_cache"

// envelopeVersion guards against decoding envelopes written by a
// different build. Mismatches are treated as cache misses.
const envelopeVersion = 1

// envelope is the cached fetch record.
type envelope struct {
	Version   int    `msgpack:"version"`
	URL       string `msgpack:"url"`
	Status    int    `msgpack:"status"`
	Body      []byte `msgpack:"body"`
	FetchedAt int64  `msgpack:"fetched_at"`
}

// Cache persists fetch results in the store, keyed by URL.
type Cache struct {
	store *store.Store
}

// NewCache creates a Cache backed by the given store.
func NewCache(s *store.Store) *Cache {
	return &Cache{store: s}
}

// get returns the cached page for url when present and fresher than
// ttl. Any storage or decode problem is a miss; a stale or corrupt
// entry is overwritten by the next put.
func (c *Cache) get(ctx context.Context, url string, ttl time.Duration) (*Page, bool) {
	rows, err := c.store.Select(ctx,
		fmt.Sprintf(`SELECT blob FROM %s WHERE url = ?`, cacheTable), url)
	if err != nil || len(rows) == 0 {
		return nil, false
	}
	blob, ok := rows[0]["blob"].([]byte)
	if !ok {
		return nil, false
	}

	var e envelope
	if err := msgpack.Unmarshal(blob, &e); err != nil {
		return nil, false
	}
	if e.Version != envelopeVersion {
		return nil, false
	}
	fetchedAt := time.Unix(e.FetchedAt, 0)
	if time.Since(fetchedAt) > ttl {
		return nil, false
	}
	return &Page{
		URL:       e.URL,
		Status:    e.Status,
		Body:      e.Body,
		FetchedAt: fetchedAt,
		FromCache: true,
	}, true
}

// put stores a fetched page, replacing any previous entry for its URL.
func (c *Cache) put(ctx context.Context, p *Page) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	blob, err := msgpack.Marshal(envelope{
		Version:   envelopeVersion,
		URL:       p.URL,
		Status:    p.Status,
		Body:      p.Body,
		FetchedAt: p.FetchedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("scrape: encode cache entry: %w", err)
	}
	_, err = c.store.Execute(ctx, fmt.Sprintf(
		`INSERT INTO %s (url, fetched_at, blob) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET fetched_at = excluded.fetched_at, blob = excluded.blob`,
		cacheTable),
		p.URL, p.FetchedAt.Unix(), blob)
	return err
}

// Prune removes entries older than the given age.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	cutoff := time.Now().Add(-olderThan).Unix()
	_, err := c.store.Execute(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE fetched_at < ?`, cacheTable), cutoff)
	return err
}

func (c *Cache) ensure(ctx context.Context) error {
	_, err := c.store.Execute(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (url TEXT PRIMARY KEY, fetched_at INTEGER NOT NULL, blob BLOB NOT NULL)`,
		cacheTable))
	return err
}
