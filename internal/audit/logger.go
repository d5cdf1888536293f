// Package audit persists the decision trail: a JSON-lines logger for
// streaming sinks and a SQLite store for queryable retention. The
// pipeline produces one entry per completed or terminated run.
package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Entry is a single audit record for one pipeline run.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Identity  string    `json:"identity,omitempty"`
	Role      string    `json:"role,omitempty"`
	Outcome   string    `json:"outcome"` // completed, blocked, failed
	BlockedAt string    `json:"blocked_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RiskScore int       `json:"risk_score"`
	Record    any       `json:"record,omitempty"` // full pipeline record
}

// Logger writes JSON-line audit entries.
type Logger struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewLogger creates an audit logger writing to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{enc: json.NewEncoder(w)}
}

// NewFileLogger creates a logger appending to the file at path,
// creating it if needed.
func NewFileLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return NewLogger(f), nil
}

// NewStderrLogger creates a logger writing to stderr.
func NewStderrLogger() *Logger {
	return NewLogger(os.Stderr)
}

// NopLogger returns a logger that discards all entries.
func NopLogger() *Logger {
	return NewLogger(io.Discard)
}

// Log writes a single entry as a JSON line. A zero timestamp is
// filled in with the current time.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(entry)
}
