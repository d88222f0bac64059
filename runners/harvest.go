package runners

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pithecene-io/crier/archive"
	"github.com/pithecene-io/crier/runner"
)

// DefaultLookbackDays is how far back Harvest reports.
const DefaultLookbackDays = 7

// Harvest reads the posted-update archive and reports posting volume
// per runner. Without an archive, or with nothing archived inside the
// lookback window, it stays silent.
type Harvest struct {
	runner.Base
	archive  archive.Reader
	lookback int
	now      func() time.Time
}

// NewHarvest creates a Harvest over the given archive reader.
func NewHarvest(r archive.Reader, lookbackDays int) *Harvest {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Harvest{archive: r, lookback: lookbackDays, now: time.Now}
}

// Name implements runner.Runner.
func (h *Harvest) Name() string { return "Harvest" }

// Description implements runner.Describer.
func (h *Harvest) Description() string {
	return "Posts a digest of recently archived updates per runner"
}

// Build aggregates archived entries from the lookback window into one
// volume digest.
func (h *Harvest) Build(ctx context.Context, _ *runner.Deps) ([]string, error) {
	if h.archive == nil {
		return nil, nil
	}

	since := archive.DeriveDay(h.now().AddDate(0, 0, -h.lookback))
	entries, err := h.archive.RecentEntries(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Runner]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("- %s: %d", name, counts[name]))
	}

	return []string{
		fmt.Sprintf("Harvest: %d updates posted in the last %d days", len(entries), h.lookback),
		strings.Join(lines, "\n"),
	}, nil
}

// Verify Harvest satisfies the runner contract.
var (
	_ runner.Runner    = (*Harvest)(nil)
	_ runner.Describer = (*Harvest)(nil)
)
