package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// RunStore keeps the history of pipeline runs.
type RunStore interface {
	// RecordRun persists one run.
	RecordRun(ctx context.Context, run *domain.PipelineRun) error

	// ListRuns returns the most recent runs first, at most limit.
	// Zero or negative limit returns all runs.
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)

	// PruneRuns keeps only the newest keep runs.
	PruneRuns(ctx context.Context, keep int) error
}
