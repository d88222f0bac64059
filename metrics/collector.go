// Package metrics provides per-invocation metrics collection.
//
// The Collector accumulates counters during a single harness
// invocation. It is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Selection and lifecycle
	RunnersSelected int64 `json:"runners_selected"`
	Posted          int64 `json:"posted"`
	SkippedRecent   int64 `json:"skipped_recent"`
	DryRuns         int64 `json:"dry_runs"`
	NoUpdates       int64 `json:"no_updates"`
	PostFailures    int64 `json:"post_failures"`

	// Fetch cache
	FetchHits   int64 `json:"fetch_hits"`
	FetchMisses int64 `json:"fetch_misses"`

	// Outbound side channels
	ArchiveWrites        int64 `json:"archive_writes"`
	ArchiveWriteFailures int64 `json:"archive_write_failures"`
	EventsPublished      int64 `json:"events_published"`
	EventPublishFailures int64 `json:"event_publish_failures"`

	// Dimensions (informational, set at construction)
	RunID string `json:"run_id"`
	Live  bool   `json:"live"`
}

// Collector accumulates counters during a single invocation.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver
// safe so optional instrumentation never needs a guard.
type Collector struct {
	mu sync.Mutex

	runnersSelected int64
	posted          int64
	skippedRecent   int64
	dryRuns         int64
	noUpdates       int64
	postFailures    int64

	fetchHits   int64
	fetchMisses int64

	archiveWrites        int64
	archiveWriteFailures int64
	eventsPublished      int64
	eventPublishFailures int64

	runID string
	live  bool
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(runID string, live bool) *Collector {
	return &Collector{runID: runID, live: live}
}

// AddRunnersSelected records the size of the selected runner set.
func (c *Collector) AddRunnersSelected(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runnersSelected += int64(n)
	c.mu.Unlock()
}

// IncPosted records a successful webhook post.
func (c *Collector) IncPosted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.posted++
	c.mu.Unlock()
}

// IncSkippedRecent records a runner skipped by the recency guard.
func (c *Collector) IncSkippedRecent() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.skippedRecent++
	c.mu.Unlock()
}

// IncDryRun records a message printed instead of posted.
func (c *Collector) IncDryRun() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dryRuns++
	c.mu.Unlock()
}

// IncNoUpdate records a runner with nothing to announce.
func (c *Collector) IncNoUpdate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.noUpdates++
	c.mu.Unlock()
}

// IncPostFailure records a failed webhook post.
func (c *Collector) IncPostFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.postFailures++
	c.mu.Unlock()
}

// IncFetchHit records a fetch served from cache.
func (c *Collector) IncFetchHit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchHits++
	c.mu.Unlock()
}

// IncFetchMiss records a fetch that went to the network.
func (c *Collector) IncFetchMiss() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchMisses++
	c.mu.Unlock()
}

// IncArchiveWrite records a successful archive append (per-call).
func (c *Collector) IncArchiveWrite() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWrites++
	c.mu.Unlock()
}

// IncArchiveWriteFailure records a failed archive append (per-call).
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteFailures++
	c.mu.Unlock()
}

// IncEventPublished records a successful event publish.
func (c *Collector) IncEventPublished() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsPublished++
	c.mu.Unlock()
}

// IncEventPublishFailure records a failed event publish.
func (c *Collector) IncEventPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventPublishFailures++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector
// can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RunnersSelected: c.runnersSelected,
		Posted:          c.posted,
		SkippedRecent:   c.skippedRecent,
		DryRuns:         c.dryRuns,
		NoUpdates:       c.noUpdates,
		PostFailures:    c.postFailures,

		FetchHits:   c.fetchHits,
		FetchMisses: c.fetchMisses,

		ArchiveWrites:        c.archiveWrites,
		ArchiveWriteFailures: c.archiveWriteFailures,
		EventsPublished:      c.eventsPublished,
		EventPublishFailures: c.eventPublishFailures,

		RunID: c.runID,
		Live:  c.live,
	}
}
