package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.PipelineRun
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]domain.PipelineRun)}
}

// RecordRun stores or replaces a run.
func (s *RunStore) RecordRun(_ context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// ListRuns returns the most recent runs first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(limit), nil
}

// PruneRuns keeps only the newest keep runs.
func (s *RunStore) PruneRuns(_ context.Context, keep int) error {
	if keep < 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make(map[string]domain.PipelineRun, keep)
	if keep > 0 {
		for _, run := range s.sorted(keep) {
			kept[run.ID] = run
		}
	}
	s.runs = kept
	return nil
}

// sorted must be called with the lock held.
func (s *RunStore) sorted(limit int) []domain.PipelineRun {
	runs := make([]domain.PipelineRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}
