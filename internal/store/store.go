// Package store persists pipeline run records for audit and resumption
// queries. SQLite is the default backend; Postgres is available for
// shared deployments.
package store

import (
	"context"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunState `json:"status,omitempty"`
	Document string         `json:"document,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// StageRecord is one stage execution recorded against a run.
type StageRecord struct {
	RunID      string            `json:"run_id"`
	Stage      model.Stage       `json:"stage"`
	Status     model.StageStatus `json:"status"`
	Detail     string            `json:"detail,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

// Store defines the persistence interface for the publishing pipeline's
// run audit trail.
type Store interface {
	CreateRun(ctx context.Context, document string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunState) error
	UpdateRunOutcome(ctx context.Context, runID string, outcome *model.RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	RecordStage(ctx context.Context, rec StageRecord) error

	Migrate(ctx context.Context) error
	Close() error
}
