package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineResult_SuccessIsConjunction(t *testing.T) {
	r := &PipelineResult{State: StateDone}
	r.Record(StageOutcome{Stage: StagePartition, Skipped: true})
	r.Record(StageOutcome{Stage: StageEnrich})
	assert.True(t, r.Success())
	assert.NoError(t, r.FatalError())

	r.Record(StageOutcome{Stage: StageChunk, Err: fmt.Errorf("%w: api down", ErrChunking)})
	assert.False(t, r.Success())
	require.ErrorIs(t, r.FatalError(), ErrChunking)

	out, ok := r.Outcome(StageChunk)
	require.True(t, ok)
	assert.Equal(t, "chunking failed: api down", out.Error)
}

func TestPipelineResult_AnnotationNotFatal(t *testing.T) {
	r := &PipelineResult{State: StateDone}
	r.Record(StageOutcome{Stage: StagePartition})
	r.Record(StageOutcome{Stage: StageAnnotate, Err: ErrAnnotation})

	assert.False(t, r.Success())
	assert.NoError(t, r.FatalError())
	assert.True(t, errors.Is(r.Err(), ErrAnnotation))
}

func TestPipelineResult_FailedState(t *testing.T) {
	r := &PipelineResult{State: StateFailed}
	assert.False(t, r.Success())
	_, ok := r.Outcome(StageEnrich)
	assert.False(t, ok)
}

func TestDefaultVariables(t *testing.T) {
	vars := DefaultVariables()
	require.Len(t, vars, 14)

	seen := make(map[string]bool)
	for _, v := range vars {
		require.NoError(t, v.Validate(), v.Name)
		assert.False(t, seen[v.Name], "duplicate %s", v.Name)
		seen[v.Name] = true
	}

	v, ok := FindVariable(vars, "contract_currency")
	require.True(t, ok)
	assert.Contains(t, v.GenerateQuestion, "EUR")

	_, ok = FindVariable(vars, "nope")
	assert.False(t, ok)

	// Callers get their own copy.
	vars[0].Name = "changed"
	assert.Equal(t, "deal_name", DefaultVariables()[0].Name)
}

func TestVariable_Validate(t *testing.T) {
	assert.ErrorIs(t, Variable{Name: "x"}.Validate(), ErrInvalidInput)
}
