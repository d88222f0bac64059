package runners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/crier/runner"
	"github.com/pithecene-io/crier/scrape"
)

// Watchdog checks the configured endpoints and reports an up/down
// digest. It is also the fallback identity for legacy post records
// that predate per-runner attribution.
type Watchdog struct {
	runner.Base
	endpoints []string
}

// NewWatchdog creates a Watchdog over the given endpoint URLs.
func NewWatchdog(endpoints []string) *Watchdog {
	return &Watchdog{endpoints: endpoints}
}

// Name implements runner.Runner.
func (w *Watchdog) Name() string { return "Watchdog" }

// Description implements runner.Describer.
func (w *Watchdog) Description() string {
	return "Checks configured endpoints and posts an up/down digest"
}

// Build fetches every endpoint and produces a health summary. A
// failures section appears only when at least one endpoint is down.
// With no endpoints configured there is nothing to announce.
func (w *Watchdog) Build(ctx context.Context, deps *runner.Deps) ([]string, error) {
	if len(w.endpoints) == 0 {
		return nil, nil
	}

	var up, down []string
	for _, url := range w.endpoints {
		page, err := deps.Fetch.Get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			down = append(down, "- "+describeFailure(url, err))
			continue
		}
		up = append(up, fmt.Sprintf("- %s (%d)", url, page.Status))
	}

	sections := []string{
		fmt.Sprintf("Watchdog: %d/%d endpoints healthy", len(up), len(w.endpoints)),
	}
	if len(up) > 0 {
		sections = append(sections, "Healthy:\n"+strings.Join(up, "\n"))
	}
	if len(down) > 0 {
		sections = append(sections, "Failing:\n"+strings.Join(down, "\n"))
	}
	return sections, nil
}

// describeFailure keeps failure lines short: a status error becomes
// "url: status 503", anything else keeps its message.
func describeFailure(url string, err error) string {
	var statusErr *scrape.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%s: status %d", url, statusErr.Code)
	}
	return fmt.Sprintf("%s: %v", url, err)
}

// Verify Watchdog satisfies the runner contract.
var (
	_ runner.Runner    = (*Watchdog)(nil)
	_ runner.Describer = (*Watchdog)(nil)
)
