package archive

import (
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"
)

// sharedFactory returns a StoreFactory that always returns the given
// store, so write and read paths share the same in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func memDataset(t *testing.T) *Dataset {
	t.Helper()
	d, err := NewWithFactory(DefaultDataset, sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewWithFactory failed: %v", err)
	}
	return d
}

func entry(runner, day string) *Entry {
	return &Entry{
		RunID:    "run-001",
		Runner:   runner,
		Day:      day,
		Text:     runner + " update for " + day,
		Live:     true,
		PostedAt: day + "T12:00:00Z",
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	d := memDataset(t)

	if err := d.Record(t.Context(), entry("Watchdog", "2026-08-25")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := d.RecentEntries(t.Context(), "")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	got := entries[0]
	if got.Runner != "Watchdog" {
		t.Errorf("Runner = %q, want %q", got.Runner, "Watchdog")
	}
	if got.Day != "2026-08-25" {
		t.Errorf("Day = %q, want %q", got.Day, "2026-08-25")
	}
	if got.Text != "Watchdog update for 2026-08-25" {
		t.Errorf("Text = %q", got.Text)
	}
	if !got.Live {
		t.Error("Live flag lost in round trip")
	}
	if got.PostedAt != "2026-08-25T12:00:00Z" {
		t.Errorf("PostedAt = %q", got.PostedAt)
	}
}

func TestRecord_RejectsNilEntry(t *testing.T) {
	d := memDataset(t)
	if err := d.Record(t.Context(), nil); err == nil {
		t.Fatal("expected error for nil entry")
	}
}

func TestRecentEntries_FiltersByDay(t *testing.T) {
	d := memDataset(t)

	days := []string{"2026-08-20", "2026-08-22", "2026-08-24"}
	for _, day := range days {
		if err := d.Record(t.Context(), entry("Watchdog", day)); err != nil {
			t.Fatalf("Record %s failed: %v", day, err)
		}
	}

	entries, err := d.RecentEntries(t.Context(), "2026-08-22")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Day < "2026-08-22" {
			t.Errorf("entry for day %s should have been filtered", e.Day)
		}
	}
}

func TestRecentEntries_EmptySinceReturnsAll(t *testing.T) {
	d := memDataset(t)

	for _, runner := range []string{"Watchdog", "Harvest"} {
		if err := d.Record(t.Context(), entry(runner, "2026-08-25")); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := d.RecentEntries(t.Context(), "")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestRecentEntries_IgnoresForeignRecords(t *testing.T) {
	d := memDataset(t)

	if err := d.Record(t.Context(), entry("Watchdog", "2026-08-25")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Write a record with a different kind directly into the dataset.
	foreign := map[string]any{
		"record_kind": "metrics",
		"runner":      "Watchdog",
		"day":         "2026-08-25",
		"run_id":      "run-001",
	}
	if _, err := d.dataset.Write(t.Context(), []any{foreign}, lode.Metadata{}); err != nil {
		t.Fatalf("raw write failed: %v", err)
	}

	entries, err := d.RecentEntries(t.Context(), "")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (foreign record should be skipped)", len(entries))
	}
}

func TestRecentEntries_EmptyDataset(t *testing.T) {
	d := memDataset(t)

	entries, err := d.RecentEntries(t.Context(), "")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "carrier-pigeon", Path: "/tmp/archive"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNew_FSBackend(t *testing.T) {
	d, err := New(Config{Backend: "fs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = d.Close() }()

	if err := d.Record(t.Context(), entry("Watchdog", "2026-08-25")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := d.RecentEntries(t.Context(), "")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestDeriveDay(t *testing.T) {
	ts := time.Date(2026, 8, 25, 23, 30, 0, 0, time.FixedZone("UTC+10", 10*3600))
	if got := DeriveDay(ts); got != "2026-08-25" {
		t.Errorf("DeriveDay = %q, want %q (UTC, not local day)", got, "2026-08-25")
	}
}

func TestStub_RecordsAndFilters(t *testing.T) {
	s := NewStub()

	for _, day := range []string{"2026-08-20", "2026-08-25"} {
		if err := s.Record(t.Context(), entry("Watchdog", day)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if len(s.Entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(s.Entries))
	}

	recent, err := s.RecentEntries(t.Context(), "2026-08-25")
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Day != "2026-08-25" {
		t.Fatalf("filter returned %d entries", len(recent))
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !s.Closed {
		t.Error("Closed flag not set")
	}
}

func TestStub_ErrInjection(t *testing.T) {
	s := NewStub()
	s.Err = ErrStorage

	if err := s.Record(t.Context(), entry("Watchdog", "2026-08-25")); err == nil {
		t.Fatal("expected injected error")
	}
	if len(s.Entries) != 0 {
		t.Error("entry recorded despite injected error")
	}
}
