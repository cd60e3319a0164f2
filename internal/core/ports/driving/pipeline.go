package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// PipelineService runs the per-PDF stage machine.
type PipelineService interface {
	// Process runs partition, enrich, chunk and annotate for one PDF,
	// skipping stages whose artifacts exist.
	Process(ctx context.Context, pdfPath string) (*domain.PipelineResult, error)

	// ProcessDirectory processes every PDF in the input directory.
	ProcessDirectory(ctx context.Context) ([]*domain.PipelineResult, error)

	// ChunkPath returns the chunk artifact path for a PDF file name.
	ChunkPath(pdfName string) string

	// ChunkFiles normalizes *.json.json names in the chunk directory and
	// lists the chunk files there.
	ChunkFiles() ([]string, error)
}

// ContractService is the upload use case: save, process, store, extract.
type ContractService interface {
	// Upload saves r as filename in the input directory and runs the full
	// flow. Returns ErrInvalidInput for non-PDF names and ErrPipeline when a
	// blocking stage fails.
	Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadResult, error)

	// Ingest runs the flow for a PDF already in place on disk.
	Ingest(ctx context.Context, pdfPath string) (*domain.UploadResult, error)
}

// RunHistory exposes recorded pipeline runs.
type RunHistory interface {
	// ListRuns returns the most recent runs first, at most limit.
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}
