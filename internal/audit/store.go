package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT    NOT NULL,
	created_at  TEXT    NOT NULL,
	identity    TEXT,
	role        TEXT,
	outcome     TEXT    NOT NULL,
	blocked_at  TEXT,
	reason      TEXT,
	risk_score  INTEGER NOT NULL,
	record      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_request_id ON pipeline_runs(request_id);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_created_at ON pipeline_runs(created_at);
`

// Store persists audit entries to SQLite for later inspection.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the SQLite database at path and
// initializes the schema. WAL mode keeps concurrent writers from the
// request pool from blocking each other.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring audit store: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save persists one entry. The full record is stored as JSON alongside
// the indexed columns.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	record, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
			(request_id, created_at, identity, role, outcome, blocked_at, reason, risk_score, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.Identity,
		entry.Role,
		entry.Outcome,
		entry.BlockedAt,
		entry.Reason,
		entry.RiskScore,
		string(record),
	)
	if err != nil {
		return fmt.Errorf("saving audit entry: %w", err)
	}
	return nil
}

// Run is a persisted pipeline run as read back from the store.
type Run struct {
	RequestID string          `json:"request_id"`
	CreatedAt time.Time       `json:"created_at"`
	Identity  string          `json:"identity,omitempty"`
	Role      string          `json:"role,omitempty"`
	Outcome   string          `json:"outcome"`
	BlockedAt string          `json:"blocked_at,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	RiskScore int             `json:"risk_score"`
	Record    json.RawMessage `json:"record"`
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, created_at, identity, role, outcome, blocked_at, reason, risk_score, record
		FROM pipeline_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit store: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt, record string
		if err := rows.Scan(&r.RequestID, &createdAt, &r.Identity, &r.Role,
			&r.Outcome, &r.BlockedAt, &r.Reason, &r.RiskScore, &record); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = ts
		}
		r.Record = json.RawMessage(record)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountByOutcome returns the number of stored runs per outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM pipeline_runs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("counting audit runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
