package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// RecordRun persists one run. Recording the same ID again replaces it.
func (s *runStore) RecordRun(ctx context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}

	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("marshalling stages: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, pdf_name, state, success, error, stages, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			success = excluded.success,
			error = excluded.error,
			stages = excluded.stages,
			ended_at = excluded.ended_at
	`, run.ID, run.PDFName, string(run.State), boolToInt(run.Success), nullString(run.Error),
		string(stagesJSON), run.StartedAt.UTC().Format(time.RFC3339Nano), formatNullableTime(run.EndedAt))

	if err != nil {
		return fmt.Errorf("saving pipeline run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	query := `
		SELECT id, pdf_name, state, success, error, stages, started_at, ended_at
		FROM pipeline_runs
		ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pipeline runs: %w", err)
	}

	return runs, nil
}

// PruneRuns keeps only the newest keep runs.
func (s *runStore) PruneRuns(ctx context.Context, keep int) error {
	if keep < 0 {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM pipeline_runs WHERE id NOT IN (
			SELECT id FROM pipeline_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning pipeline runs: %w", err)
	}
	return nil
}

// scanRun scans a pipeline run from *sql.Rows.
func scanRun(rows *sql.Rows) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var state, stagesJSON, startedAt string
	var success int
	var errText, endedAt sql.NullString

	if err := rows.Scan(&run.ID, &run.PDFName, &state, &success, &errText,
		&stagesJSON, &startedAt, &endedAt); err != nil {
		return nil, fmt.Errorf("scanning pipeline run: %w", err)
	}

	run.State = domain.PipelineState(state)
	run.Success = success == 1
	run.Error = errText.String
	run.StartedAt = parseNullableTime(sql.NullString{String: startedAt, Valid: true})
	run.EndedAt = parseNullableTime(endedAt)

	if stagesJSON != "" {
		if err := json.Unmarshal([]byte(stagesJSON), &run.Stages); err != nil {
			return nil, fmt.Errorf("unmarshaling stages: %w", err)
		}
	}

	return &run, nil
}

// formatNullableTime formats a time as RFC3339, or returns nil for zero time.
func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString converts empty string to nil for nullable columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
