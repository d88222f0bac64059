package runner

// Outcome classifies how one runner invocation finished.
type Outcome string

const (
	// OutcomePosted: the update was delivered and recorded.
	OutcomePosted Outcome = "posted"
	// OutcomeSkippedRecent: a post inside the recency window already
	// exists, nothing was sent.
	OutcomeSkippedRecent Outcome = "skipped_recent"
	// OutcomeDryRun: live mode off, the message was printed locally
	// and neither posted nor recorded.
	OutcomeDryRun Outcome = "dry_run"
	// OutcomeNoUpdate: the runner built no text, nothing to announce.
	OutcomeNoUpdate Outcome = "no_update"
	// OutcomePostFailed: the webhook rejected or never acknowledged
	// the post. Logged, not recorded, not fatal.
	OutcomePostFailed Outcome = "post_failed"
)

// Result is the per-runner entry in a run report.
type Result struct {
	Runner     string  `json:"runner"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
	DurationMs int64   `json:"duration_ms"`

	// DatePosted is set when the outcome is posted.
	DatePosted string `json:"date_posted,omitempty"`
	// Text is the built update. Events and the archive carry it; the
	// report does not.
	Text string `json:"-"`
}
