package unstructured

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Default chunking parameters.
const (
	DefaultMaxCharacters = 3000
	DefaultOverlap       = 150
)

// ChunkConfig holds the title chunking parameters.
type ChunkConfig struct {
	Config

	// MaxCharacters is the hard chunk size limit.
	MaxCharacters int

	// Overlap is the number of characters repeated between split chunks.
	Overlap int
}

// Chunker uploads an enriched element collection and lets the API chunk it
// by title. Tag markers in element text are plain characters to the API and
// pass through untouched.
type Chunker struct {
	client        *client
	maxCharacters int
	overlap       int
}

// NewChunker creates a chunker. Returns ErrConfiguration without an API key.
func NewChunker(cfg ChunkConfig) (*Chunker, error) {
	c, err := newClient(cfg.Config)
	if err != nil {
		return nil, err
	}
	if cfg.MaxCharacters <= 0 {
		cfg.MaxCharacters = DefaultMaxCharacters
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxCharacters {
		cfg.Overlap = DefaultOverlap
	}
	return &Chunker{client: c, maxCharacters: cfg.MaxCharacters, overlap: cfg.Overlap}, nil
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "unstructured"
}

// Chunk sends the elements as <source>.json and returns the chunk records.
func (c *Chunker) Chunk(ctx context.Context, source string, elements []domain.Element) ([]domain.ChunkRecord, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no elements to chunk", domain.ErrChunking)
	}

	content, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("%w: encode elements: %v", domain.ErrChunking, err)
	}

	fields := []formField{
		{"chunking_strategy", "by_title"},
		{"max_characters", strconv.Itoa(c.maxCharacters)},
		{"overlap", strconv.Itoa(c.overlap)},
		{"include_orig_elements", "true"},
		{"output_format", "application/json"},
	}

	var records []domain.ChunkRecord
	if err := c.client.post(ctx, source+".json", "application/json", content, fields, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrChunking, err)
	}
	return records, nil
}
