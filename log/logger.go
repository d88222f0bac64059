// Package log emits the harness's operational log: one JSON object per
// line on stderr, leaving stdout to command output and announcements.
//
// Every entry carries the run id, and entries written during a runner's
// lifecycle carry the runner name as well, so interleaved output from
// overlapping scheduled invocations can be told apart.
package log

import (
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes structured entries bound to one invocation.
type Logger struct {
	zap    *zap.Logger
	runID  string
	runner string
}

// NewLogger creates a logger bound to the given run id, writing to
// os.Stderr.
func NewLogger(runID string) *Logger {
	return &Logger{zap: newZap(runID, os.Stderr), runID: runID}
}

// WithOutput returns a logger with the same bound context writing to w.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	out := &Logger{zap: newZap(l.runID, w), runID: l.runID}
	if l.runner != "" {
		out = out.WithRunner(l.runner)
	}
	return out
}

// WithRunner returns a logger that also carries the runner name.
func (l *Logger) WithRunner(name string) *Logger {
	return &Logger{
		zap:    l.zap.With(zap.String("runner", name)),
		runID:  l.runID,
		runner: name,
	}
}

// Info records a normal lifecycle step.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, flatten(fields)...)
}

// Warn records a degraded step the run survives, such as a failed
// cache prune or event publish.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, flatten(fields)...)
}

// Error records a failure that changes a runner's outcome.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, flatten(fields)...)
}

func newZap(runID string, w io.Writer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.InfoLevel)
	return zap.New(core).With(zap.String("run_id", runID))
}

// flatten turns a fields map into sorted zap fields so entries with the
// same keys serialize identically from run to run.
func flatten(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
