// Package adapter defines the outbound event boundary.
//
// Adapters publish runner completion notifications to downstream
// systems. The harness owns adapter lifecycle; users provide
// configuration only. Publishing is best-effort: a lost notification
// never fails the run that produced it.
package adapter

import "context"

// SchemaVersion identifies the event payload shape.
const SchemaVersion = "1"

// EventTypeRunnerCompleted is the event_type for RunnerCompletedEvent.
const EventTypeRunnerCompleted = "runner_completed"

// RunnerCompletedEvent is the payload published when one runner
// finishes its lifecycle, whatever the outcome.
type RunnerCompletedEvent struct {
	SchemaVersion string `json:"schema_version"`
	EventType     string `json:"event_type"` // always "runner_completed"
	RunID         string `json:"run_id"`
	Runner        string `json:"runner"`
	Outcome       string `json:"outcome"` // posted, skipped_recent, dry_run, no_update, post_failed
	DatePosted    string `json:"date_posted,omitempty"`
	Text          string `json:"text,omitempty"`
	Live          bool   `json:"live"`
	Timestamp     string `json:"timestamp"` // ISO 8601
	DurationMs    int64  `json:"duration_ms"`
}

// Adapter publishes runner completion events to a downstream system.
type Adapter interface {
	// Publish sends one event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunnerCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
