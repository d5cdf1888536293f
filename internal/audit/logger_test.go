package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	err := logger.Log(Entry{
		RequestID: "run-1",
		Identity:  "alice",
		Role:      "user",
		Outcome:   "blocked",
		BlockedAt: "firewall",
		Reason:    "strong prompt injection or jailbreak pattern detected",
		RiskScore: 100,
	})
	if err != nil {
		t.Fatalf("failed to log: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "run-1") {
		t.Error("expected request_id in output")
	}
	if !strings.Contains(output, "blocked") {
		t.Error("expected outcome in output")
	}

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.RiskScore != 100 {
		t.Errorf("expected risk score 100, got %d", entry.RiskScore)
	}
}

func TestLogger_TimestampAutoFill(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	before := time.Now().UTC()
	logger.Log(Entry{RequestID: "ts-test", Outcome: "completed"})
	after := time.Now().UTC()

	var entry Entry
	json.Unmarshal(buf.Bytes(), &entry)

	if entry.Timestamp.Before(before) || entry.Timestamp.After(after) {
		t.Error("auto-filled timestamp is out of range")
	}
}

func TestLogger_OneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Log(Entry{RequestID: "a", Outcome: "completed"})
	logger.Log(Entry{RequestID: "b", Outcome: "failed"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	if err := logger.Log(Entry{RequestID: "nop", Outcome: "completed"}); err != nil {
		t.Errorf("nop logger should not error: %v", err)
	}
}
