package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWithOutputKeepsBoundContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("run-123").WithRunner("Watchdog").WithOutput(&buf)

	logger.Info("posted", map[string]any{"date": "2026-08-25"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if entry["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want run-123", entry["run_id"])
	}
	if entry["runner"] != "Watchdog" {
		t.Errorf("runner = %v, want Watchdog", entry["runner"])
	}
	if entry["date"] != "2026-08-25" {
		t.Errorf("date = %v, want 2026-08-25", entry["date"])
	}
	if entry["message"] != "posted" {
		t.Errorf("message = %v, want posted", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestFieldsFlattenSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("run-1").WithOutput(&buf)

	logger.Warn("event publish failed", map[string]any{
		"runner": "Harvest",
		"error":  "connection refused",
	})

	line := buf.String()
	if !strings.Contains(line, `"error":"connection refused"`) {
		t.Errorf("error field not flattened into the entry: %s", line)
	}
	if strings.Index(line, `"error"`) > strings.Index(line, `"runner":"Harvest"`) {
		t.Errorf("fields not emitted in sorted key order: %s", line)
	}
}
