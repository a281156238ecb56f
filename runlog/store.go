// Package runlog persists the normalized event log of each translated run,
// so the dashboard can list past runs and re-fold them after a reload. The
// log is append-only; every derived view is rebuilt by replay.
package runlog

import (
	"context"

	"github.com/consolehq/agui-gateway/types"
)

type ListQuery struct {
	Limit  int
	Offset int
}

type RunSummary struct {
	RunID      string  `json:"runId"`
	ThreadID   string  `json:"threadId,omitempty"`
	StartedAt  float64 `json:"startedAt,omitempty"`
	EventCount int64   `json:"eventCount"`
}

type Store interface {
	Append(ctx context.Context, event types.Event) error
	ListRuns(ctx context.Context, query ListQuery) ([]RunSummary, error)
	EventsByRun(ctx context.Context, runID string, query ListQuery) ([]types.Event, error)
	Close() error
}
