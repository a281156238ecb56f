package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/consolehq/agui-gateway/runlog"
	"github.com/consolehq/agui-gateway/types"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 500

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("run log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize run log schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(ctx context.Context, event types.Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(event.RunID) == "" {
		return fmt.Errorf("runID is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode run log event: %w", err)
	}
	const q = `
INSERT INTO run_events (event_id, run_id, thread_id, type, timestamp, payload)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		uuid.NewString(),
		event.RunID,
		event.ThreadID,
		string(event.Type),
		event.Timestamp,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append run log event: %w", err)
	}
	return nil
}

// EventsByRun returns the persisted events in exactly their append order,
// which is the order the gateway emitted them to the client.
func (s *Store) EventsByRun(ctx context.Context, runID string, query runlog.ListQuery) ([]types.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("runID is required")
	}
	limit, offset := clampQuery(query)
	const q = `
SELECT payload FROM run_events
WHERE run_id = ?
ORDER BY seq ASC
LIMIT ? OFFSET ?;
`
	rows, err := s.db.QueryContext(ctx, q, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list run log events: %w", err)
	}
	defer rows.Close()

	out := make([]types.Event, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan run log event: %w", err)
		}
		var ev types.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode run log event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run log events: %w", err)
	}
	return out, nil
}

func (s *Store) ListRuns(ctx context.Context, query runlog.ListQuery) ([]runlog.RunSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit, offset := clampQuery(query)
	const q = `
SELECT run_id, MAX(thread_id), MIN(timestamp), COUNT(*)
FROM run_events
GROUP BY run_id
ORDER BY MIN(seq) DESC
LIMIT ? OFFSET ?;
`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := make([]runlog.RunSummary, 0, limit)
	for rows.Next() {
		var summary runlog.RunSummary
		if err := rows.Scan(&summary.RunID, &summary.ThreadID, &summary.StartedAt, &summary.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func clampQuery(query runlog.ListQuery) (int, int) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ runlog.Store = (*Store)(nil)
