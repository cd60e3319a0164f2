// Package postprocessors provides the chunk processing chain that turns
// enriched elements into chunk records.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Pipeline implements both the processor chain and the chunker port.
var (
	_ driven.ChunkProcessorPipeline = (*Pipeline)(nil)
	_ driven.Chunker                = (*Pipeline)(nil)
)

// Pipeline chains multiple ChunkProcessors and runs them in order.
// An optional base chunker produces the initial records, so a remote
// chunker can be followed by local processors.
type Pipeline struct {
	base       driven.Chunker
	processors []driven.ChunkProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.ChunkProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// WithBase sets the chunker that runs before the processors.
func (p *Pipeline) WithBase(base driven.Chunker) *Pipeline {
	p.base = base
	return p
}

// Name describes the chain for logs.
func (p *Pipeline) Name() string {
	name := "local"
	if p.base != nil {
		name = p.base.Name()
	}
	for _, proc := range p.processors {
		name += "+" + proc.Name()
	}
	return name
}

// Process runs the elements through all processors in order.
// The first processor receives nil records and should create them.
// Subsequent processors receive and may modify the records.
func (p *Pipeline) Process(ctx context.Context, elements []domain.Element) ([]domain.ChunkRecord, error) {
	return p.run(ctx, elements, nil)
}

// Chunk runs the base chunker, if any, then the processors.
func (p *Pipeline) Chunk(ctx context.Context, source string, elements []domain.Element) ([]domain.ChunkRecord, error) {
	var records []domain.ChunkRecord
	if p.base != nil {
		var err error
		records, err = p.base.Chunk(ctx, source, elements)
		if err != nil {
			return nil, err
		}
	}
	return p.run(ctx, elements, records)
}

func (p *Pipeline) run(ctx context.Context, elements []domain.Element, records []domain.ChunkRecord) ([]domain.ChunkRecord, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no elements", domain.ErrChunking)
	}

	for _, processor := range p.processors {
		var err error
		records, err = processor.Process(ctx, elements, records)
		if err != nil {
			return nil, fmt.Errorf("%w: processor %s: %w", domain.ErrChunking, processor.Name(), err)
		}
	}

	return records, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.ChunkProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
