package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("run-001", true)

	c.AddRunnersSelected(6)
	c.IncPosted()
	c.IncPosted()
	c.IncSkippedRecent()
	c.IncDryRun()
	c.IncNoUpdate()
	c.IncPostFailure()
	c.IncFetchHit()
	c.IncFetchHit()
	c.IncFetchMiss()
	c.IncArchiveWrite()
	c.IncArchiveWriteFailure()
	c.IncEventPublished()
	c.IncEventPublishFailure()

	s := c.Snapshot()

	if s.RunnersSelected != 6 {
		t.Errorf("RunnersSelected = %d, want 6", s.RunnersSelected)
	}
	if s.Posted != 2 {
		t.Errorf("Posted = %d, want 2", s.Posted)
	}
	if s.SkippedRecent != 1 {
		t.Errorf("SkippedRecent = %d, want 1", s.SkippedRecent)
	}
	if s.DryRuns != 1 {
		t.Errorf("DryRuns = %d, want 1", s.DryRuns)
	}
	if s.NoUpdates != 1 {
		t.Errorf("NoUpdates = %d, want 1", s.NoUpdates)
	}
	if s.PostFailures != 1 {
		t.Errorf("PostFailures = %d, want 1", s.PostFailures)
	}
	if s.FetchHits != 2 {
		t.Errorf("FetchHits = %d, want 2", s.FetchHits)
	}
	if s.FetchMisses != 1 {
		t.Errorf("FetchMisses = %d, want 1", s.FetchMisses)
	}
	if s.ArchiveWrites != 1 || s.ArchiveWriteFailures != 1 {
		t.Errorf("archive counters = %d/%d, want 1/1", s.ArchiveWrites, s.ArchiveWriteFailures)
	}
	if s.EventsPublished != 1 || s.EventPublishFailures != 1 {
		t.Errorf("event counters = %d/%d, want 1/1", s.EventsPublished, s.EventPublishFailures)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("run-42", false)
	s := c.Snapshot()

	if s.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", s.RunID, "run-42")
	}
	if s.Live {
		t.Error("Live = true, want false")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("run-001", true)
	c.IncPosted()

	s1 := c.Snapshot()

	c.IncPosted()
	c.IncSkippedRecent()

	if s1.Posted != 1 {
		t.Errorf("s1.Posted = %d, want 1 (snapshot should be frozen)", s1.Posted)
	}
	if s1.SkippedRecent != 0 {
		t.Errorf("s1.SkippedRecent = %d, want 0 (snapshot should be frozen)", s1.SkippedRecent)
	}

	s2 := c.Snapshot()
	if s2.Posted != 2 {
		t.Errorf("s2.Posted = %d, want 2", s2.Posted)
	}
	if s2.SkippedRecent != 1 {
		t.Errorf("s2.SkippedRecent = %d, want 1", s2.SkippedRecent)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.AddRunnersSelected(3)
	c.IncPosted()
	c.IncSkippedRecent()
	c.IncDryRun()
	c.IncNoUpdate()
	c.IncPostFailure()
	c.IncFetchHit()
	c.IncFetchMiss()
	c.IncArchiveWrite()
	c.IncArchiveWriteFailure()
	c.IncEventPublished()
	c.IncEventPublishFailure()

	s := c.Snapshot()
	if s.Posted != 0 {
		t.Errorf("nil collector snapshot Posted = %d, want 0", s.Posted)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("run-001", true)
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncPosted()
				c.IncFetchHit()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.Posted != want {
		t.Errorf("Posted = %d, want %d", s.Posted, want)
	}
	if s.FetchHits != want {
		t.Errorf("FetchHits = %d, want %d", s.FetchHits, want)
	}
}
