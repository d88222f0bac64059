// Package runtime drives one harness invocation end to end: migrate
// the schema, select runners, run each through the lifecycle in order,
// and emit the per-runner completion events.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pithecene-io/crier/adapter"
	"github.com/pithecene-io/crier/archive"
	"github.com/pithecene-io/crier/log"
	"github.com/pithecene-io/crier/metrics"
	"github.com/pithecene-io/crier/registry"
	"github.com/pithecene-io/crier/runner"
	"github.com/pithecene-io/crier/store"
)

// NewRunID returns a fresh invocation identifier.
func NewRunID() string {
	return fmt.Sprintf("run-%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}

// RunConfig configures a single harness invocation.
type RunConfig struct {
	// Store is the posts database (required).
	Store *store.Store
	// Registry answers runner selection (required).
	Registry *registry.Registry
	// Poster delivers updates in live mode. Required when Live is set.
	Poster runner.Poster
	// Deps are handed to each runner's Build.
	Deps *runner.Deps
	// Adapter receives a completion event per executed runner.
	// Nil disables events.
	Adapter adapter.Adapter
	// Archive receives successfully posted updates. Nil disables
	// archiving.
	Archive archive.Sink
	// Collector accumulates run metrics (nil-safe).
	Collector *metrics.Collector
	// Logger overrides the default run logger (for testing).
	Logger *log.Logger

	// RunID identifies this invocation.
	RunID string
	// Live gates actual posting. Off prints messages to Out instead.
	Live bool
	// Filters select runners by case-insensitive substring match.
	// Empty selects every registered runner.
	Filters []string
	// RecencyDays overrides the recency guard window when positive.
	RecencyDays int
	// Delay is the abort window after the selected runners are
	// announced, before the first one executes. Zero skips the wait.
	Delay time.Duration
	// Out receives the runner announcement and dry-run output.
	// Defaults to os.Stdout.
	Out io.Writer
	// Getenv is swappable for tests. Defaults to os.Getenv.
	Getenv func(string) string
}

// RunResult is the outcome of one invocation.
type RunResult struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	// Results holds one entry per executed runner, in execution order.
	Results []runner.Result
	// Metrics is the final counter snapshot.
	Metrics metrics.Snapshot
}

// Orchestrator executes one harness invocation.
type Orchestrator struct {
	config  *RunConfig
	logger  *log.Logger
	started time.Time
}

// NewOrchestrator creates an orchestrator after validating the config.
func NewOrchestrator(config *RunConfig) (*Orchestrator, error) {
	if config.Store == nil {
		return nil, errors.New("runtime: store is required")
	}
	if config.Registry == nil {
		return nil, errors.New("runtime: registry is required")
	}
	if config.Live && config.Poster == nil {
		return nil, errors.New("runtime: live mode requires a poster")
	}
	if config.RunID == "" {
		config.RunID = NewRunID()
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunID)
	}

	return &Orchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Execute runs the invocation end to end.
//
// Flow:
//  1. Migrate the schema (idempotent).
//  2. Select runners against the registry.
//  3. Announce the selection, then wait out the abort window.
//  4. Run each through the lifecycle, in sorted order.
//  5. Publish a completion event per runner; archive posted updates.
//  6. Prune the fetch cache.
//
// A fatal lifecycle error (missing environment, defective runner,
// failed build, failed record write) aborts the remaining runners and
// surfaces as the returned error.
func (o *Orchestrator) Execute(ctx context.Context) (*RunResult, error) {
	o.started = time.Now()

	if err := o.config.Store.Migrate(ctx, o.logger); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	selected := o.config.Registry.Select(o.config.Filters)
	o.config.Collector.AddRunnersSelected(len(selected))

	names := make([]string, len(selected))
	for i, rn := range selected {
		names[i] = rn.Name()
	}
	o.logger.Info("selected runners", map[string]any{
		"count":   len(selected),
		"runners": names,
		"live":    o.config.Live,
	})

	if len(selected) > 0 {
		out := o.config.Out
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintf(out, "Running: %s\n", strings.Join(names, ", "))
		// The operator can still abort before anything posts.
		if err := o.pause(ctx); err != nil {
			return nil, err
		}
	}

	exec := &runner.Executor{
		Store:       o.config.Store,
		Poster:      o.config.Poster,
		Deps:        o.config.Deps,
		Log:         o.logger,
		Live:        o.config.Live,
		RecencyDays: o.config.RecencyDays,
		Out:         o.config.Out,
		Getenv:      o.config.Getenv,
		Metrics:     o.config.Collector,
	}

	result := &RunResult{RunID: o.config.RunID, Started: o.started}
	for _, rn := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := exec.Exec(ctx, rn)
		if err != nil {
			return nil, err
		}
		result.Results = append(result.Results, res)

		o.publishEvent(ctx, res)
		if res.Outcome == runner.OutcomePosted {
			o.archiveUpdate(ctx, res)
		}
	}

	if o.config.Deps != nil && o.config.Deps.Fetch != nil {
		if err := o.config.Deps.Fetch.PruneCache(ctx); err != nil {
			o.logger.Warn("fetch cache prune failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	result.Finished = time.Now()
	result.Metrics = o.config.Collector.Snapshot()

	o.logger.Info("run complete", map[string]any{
		"runners":  len(result.Results),
		"posted":   result.Metrics.Posted,
		"duration": result.Finished.Sub(o.started).String(),
	})
	return result, nil
}

// publishEvent sends the per-runner completion event. Failures are
// logged and counted, never fatal.
func (o *Orchestrator) publishEvent(ctx context.Context, res runner.Result) {
	if o.config.Adapter == nil {
		return
	}

	event := &adapter.RunnerCompletedEvent{
		SchemaVersion: adapter.SchemaVersion,
		EventType:     adapter.EventTypeRunnerCompleted,
		RunID:         o.config.RunID,
		Runner:        res.Runner,
		Outcome:       string(res.Outcome),
		DatePosted:    res.DatePosted,
		Text:          res.Text,
		Live:          o.config.Live,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		DurationMs:    res.DurationMs,
	}
	if err := o.config.Adapter.Publish(ctx, event); err != nil {
		o.logger.Warn("event publish failed", map[string]any{
			"runner": res.Runner,
			"error":  err.Error(),
		})
		o.config.Collector.IncEventPublishFailure()
		return
	}
	o.config.Collector.IncEventPublished()
}

// archiveUpdate appends a posted update to the archive. Failures are
// logged and counted, never fatal.
func (o *Orchestrator) archiveUpdate(ctx context.Context, res runner.Result) {
	if o.config.Archive == nil {
		return
	}

	entry := &archive.Entry{
		RunID:    o.config.RunID,
		Runner:   res.Runner,
		Day:      res.DatePosted,
		Text:     res.Text,
		Live:     o.config.Live,
		PostedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := o.config.Archive.Record(ctx, entry); err != nil {
		o.logger.Warn("archive write failed", map[string]any{
			"runner": res.Runner,
			"error":  err.Error(),
		})
		o.config.Collector.IncArchiveWriteFailure()
		return
	}
	o.config.Collector.IncArchiveWrite()
}

// pause waits out the announcement delay, aborting on cancellation.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.config.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.config.Delay):
		return nil
	}
}
