package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// Partitioner turns a PDF into layout elements.
// Implementations: the Unstructured partition API, or local text extraction.
type Partitioner interface {
	// Name identifies the partitioner in logs.
	Name() string

	// Partition returns the elements of the PDF at pdfPath.
	Partition(ctx context.Context, pdfPath string) ([]domain.Element, error)
}

// Chunker groups enriched elements into retrieval-sized chunk records,
// breaking on titles.
type Chunker interface {
	// Name identifies the chunker in logs.
	Name() string

	// Chunk returns chunk records for the given elements. source is the
	// original PDF file name, for chunkers that need it.
	Chunk(ctx context.Context, source string, elements []domain.Element) ([]domain.ChunkRecord, error)
}

// PageSize is the media box of one PDF page in points.
type PageSize struct {
	Number int
	Width  float64
	Height float64
}

// PageInspector reads page geometry from a PDF.
type PageInspector interface {
	// Pages returns one entry per page, numbered from 1.
	Pages(ctx context.Context, pdfPath string) ([]PageSize, error)
}
