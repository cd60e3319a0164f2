package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// ElementStore reads and writes the JSON artifacts the pipeline passes
// between stages. Writes to one path are serialised.
type ElementStore interface {
	// LoadElements reads an element collection.
	LoadElements(ctx context.Context, path string) ([]domain.Element, error)

	// SaveElements replaces an element collection atomically.
	SaveElements(ctx context.Context, path string, elements []domain.Element) error

	// LoadChunkRecords reads a chunk record collection.
	LoadChunkRecords(ctx context.Context, path string) ([]domain.ChunkRecord, error)

	// SaveChunkRecords replaces a chunk record collection atomically.
	SaveChunkRecords(ctx context.Context, path string, records []domain.ChunkRecord) error

	// SaveJSON writes any value as indented JSON atomically.
	SaveJSON(ctx context.Context, path string, v any) error
}

// Archive keeps a copy of uploaded PDFs in object storage. Optional.
type Archive interface {
	// Put stores the content under name.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error

	// Close releases resources.
	Close() error
}
