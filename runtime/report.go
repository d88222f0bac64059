package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/crier/metrics"
	"github.com/pithecene-io/crier/runner"
)

// RunReport is the structured JSON report written by --report-file.
type RunReport struct {
	RunID      string `json:"run_id"`
	Live       bool   `json:"live"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	DurationMs int64  `json:"duration_ms"`

	// Runners holds one entry per executed runner, in execution order.
	Runners []runner.Result   `json:"runners"`
	Metrics *metrics.Snapshot `json:"metrics"`
}

// BuildRunReport composes a RunReport from a run result.
func BuildRunReport(result *RunResult, live bool) *RunReport {
	snap := result.Metrics
	return &RunReport{
		RunID:      result.RunID,
		Live:       live,
		StartedAt:  result.Started.UTC().Format(time.RFC3339),
		FinishedAt: result.Finished.UTC().Format(time.RFC3339),
		DurationMs: result.Finished.Sub(result.Started).Milliseconds(),
		Runners:    result.Results,
		Metrics:    &snap,
	}
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		return writeRunReportTo(report, os.Stderr)
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer (for testing).
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
