package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// ChunkProcessor produces or rewrites chunk records.
// Processors are chained in a pipeline (chunking, tag balancing).
type ChunkProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives the enriched elements and the records produced so far.
	// A processor that creates records (the chunker) receives nil records.
	Process(ctx context.Context, elements []domain.Element, records []domain.ChunkRecord) ([]domain.ChunkRecord, error)
}

// ChunkProcessorPipeline chains multiple ChunkProcessors.
type ChunkProcessorPipeline interface {
	// Process runs the elements through all processors in order.
	Process(ctx context.Context, elements []domain.Element) ([]domain.ChunkRecord, error)
}
