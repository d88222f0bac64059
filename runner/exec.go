package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/crier/log"
	"github.com/pithecene-io/crier/metrics"
	"github.com/pithecene-io/crier/store"
)

// DefaultRecencyDays is the trailing window the recency guard checks:
// a fortnight between posts per runner.
const DefaultRecencyDays = 14

// Poster delivers one update text to the messaging webhook.
// Implemented by announce.Client.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Executor drives the runner lifecycle: validate environment, check
// recency, build and post, record. One Executor serves a whole
// invocation; Exec is called once per selected runner.
type Executor struct {
	Store  *store.Store
	Poster Poster
	Deps   *Deps
	Log    *log.Logger

	// Live gates actual posting. Off means messages are printed to
	// Out instead.
	Live bool
	// RecencyDays overrides DefaultRecencyDays when positive.
	RecencyDays int
	// Out receives dry-run output. Defaults to os.Stdout.
	Out io.Writer
	// Getenv is swappable for tests. Defaults to os.Getenv.
	Getenv func(string) string

	Metrics *metrics.Collector
}

// Exec runs one runner through the lifecycle and classifies the
// result. Returned errors are fatal for the whole invocation: missing
// environment, a defective runner, a failed build, or a failed record
// write. Webhook failures and recency skips come back as outcomes, not
// errors.
func (e *Executor) Exec(ctx context.Context, r Runner) (Result, error) {
	started := time.Now()
	logger := e.Log.WithRunner(r.Name())
	result := func(o Outcome, detail string) Result {
		return Result{
			Runner:     r.Name(),
			Outcome:    o,
			Detail:     detail,
			DurationMs: time.Since(started).Milliseconds(),
		}
	}

	if missing := e.missingEnv(r); len(missing) > 0 {
		return Result{}, &MissingEnvError{Runner: r.Name(), Missing: missing}
	}

	recent, err := e.postedRecently(ctx, r.Name())
	if err != nil {
		// Only context cancellation escapes the fail-open rescue; any
		// other storage error means the guard is unavailable and the
		// acceptable failure mode is a duplicate post, not a crash.
		if ctx.Err() != nil {
			return Result{}, err
		}
		logger.Warn("recency check failed, assuming not posted", map[string]any{
			"error": err.Error(),
		})
		recent = false
	}
	if recent {
		logger.Info("skipping, posted within recency window", map[string]any{
			"window_days": e.recencyDays(),
		})
		e.Metrics.IncSkippedRecent()
		return result(OutcomeSkippedRecent, ""), nil
	}

	sections, err := r.Build(ctx, e.Deps)
	if err != nil {
		if errors.Is(err, ErrNotImplemented) {
			return Result{}, fmt.Errorf("runner %s: %w", r.Name(), err)
		}
		return Result{}, fmt.Errorf("runner %s: build: %w", r.Name(), err)
	}
	text := JoinSections(sections)
	if text == "" {
		logger.Info("nothing to announce", nil)
		e.Metrics.IncNoUpdate()
		return result(OutcomeNoUpdate, ""), nil
	}

	if !e.Live {
		fmt.Fprintf(e.out(), "=== %s (dry run) ===\n%s\n", r.Name(), text)
		e.Metrics.IncDryRun()
		res := result(OutcomeDryRun, "")
		res.Text = text
		return res, nil
	}

	if err := e.Poster.Post(ctx, text); err != nil {
		if ctx.Err() != nil {
			return Result{}, err
		}
		logger.Error("webhook post failed", map[string]any{
			"error": err.Error(),
		})
		e.Metrics.IncPostFailure()
		res := result(OutcomePostFailed, err.Error())
		res.Text = text
		return res, nil
	}

	post := store.Post{
		DatePosted: time.Now().Format(store.DateLayout),
		Runner:     r.Name(),
		Text:       text,
	}
	if err := e.Store.RecordPost(ctx, post); err != nil {
		// Losing the record would break the once-per-window guarantee
		// on the next invocation, so this is not recoverable.
		return Result{}, fmt.Errorf("runner %s: record post: %w", r.Name(), err)
	}
	logger.Info("posted", map[string]any{"date": post.DatePosted})
	e.Metrics.IncPosted()
	res := result(OutcomePosted, "")
	res.DatePosted = post.DatePosted
	res.Text = text
	return res, nil
}

func (e *Executor) missingEnv(r Runner) []string {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	var missing []string
	for _, name := range r.RequiredEnv() {
		if getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (e *Executor) postedRecently(ctx context.Context, name string) (bool, error) {
	cutoff := time.Now().AddDate(0, 0, -e.recencyDays()).Format(store.DateLayout)
	return e.Store.PostedSince(ctx, name, cutoff)
}

func (e *Executor) recencyDays() int {
	if e.RecencyDays > 0 {
		return e.RecencyDays
	}
	return DefaultRecencyDays
}

func (e *Executor) out() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return os.Stdout
}
