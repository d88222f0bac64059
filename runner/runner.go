// Package runner defines the contract every harness plug-in satisfies
// and the lifecycle engine that executes one plug-in end to end.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/crier/log"
	"github.com/pithecene-io/crier/scrape"
	"github.com/pithecene-io/crier/store"
)

// Environment variables the harness reads.
const (
	// EnvLiveMode enables live posting when set to "true".
	EnvLiveMode = "MORPH_LIVE_MODE"
	// EnvWebhookURL is the messaging webhook target.
	EnvWebhookURL = "MORPH_SLACK_CHANNEL_WEBHOOK_URL"
	// EnvRunners is the fallback comma-separated selection filter,
	// used when no explicit filter flag is given.
	EnvRunners = "MORPH_RUNNERS"
)

// ErrNotImplemented is returned by the default Build. Reaching it
// means a runner was registered without a message builder, which is a
// defect, not a runtime condition.
var ErrNotImplemented = errors.New("build not implemented")

// Runner is the contract every plug-in satisfies.
type Runner interface {
	// Name is the runner's stable identity. Selection filters match
	// against it and post records carry it.
	Name() string
	// RequiredEnv lists environment variables that must be set before
	// this runner may execute.
	RequiredEnv() []string
	// Build produces the sections of one status update. Empty
	// sections are dropped; producing no text means there is nothing
	// to announce today.
	Build(ctx context.Context, deps *Deps) ([]string, error)
}

// Describer is an optional capability for runners that carry a
// human-facing description, shown by the list command.
type Describer interface {
	Description() string
}

// Deps carries the shared collaborators available to a runner while it
// builds an update.
type Deps struct {
	Store *store.Store
	Fetch *scrape.Client
	Log   *log.Logger
}

// Base supplies the default contract surface. Embed it and override
// Build; the default Build reports the runner as defective.
type Base struct{}

// RequiredEnv returns the variables every runner needs: the live-mode
// flag and the webhook target.
func (Base) RequiredEnv() []string {
	return []string{EnvLiveMode, EnvWebhookURL}
}

// Build must be overridden by the embedding runner.
func (Base) Build(context.Context, *Deps) ([]string, error) {
	return nil, ErrNotImplemented
}

// MissingEnvError reports unset required environment variables for a
// runner about to execute. It is fatal: a misconfigured deployment
// must not silently skip runners.
type MissingEnvError struct {
	Runner  string
	Missing []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("runner %s: missing required environment variables: %s",
		e.Runner, strings.Join(e.Missing, ", "))
}

// JoinSections drops empty sections and joins the rest with a blank
// line between them.
func JoinSections(sections []string) string {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}
