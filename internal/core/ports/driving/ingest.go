package driving

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// IngestService stores chunk files and keeps embeddings complete.
type IngestService interface {
	// InsertChunks stores every record of the chunk file at path under the
	// document named after the file, embedding each chunk.
	InsertChunks(ctx context.Context, path string) (domain.InsertReport, error)

	// ProcessEmbeddings embeds the chunks of a document that have none.
	ProcessEmbeddings(ctx context.Context, documentID int64) (domain.BackfillReport, error)

	// IsProcessed reports whether chunks exist for the source file name.
	IsProcessed(ctx context.Context, sourceFile string) (bool, error)

	// Documents lists registered documents.
	Documents(ctx context.Context) ([]domain.Document, error)

	// Document resolves one document.
	Document(ctx context.Context, id int64) (*domain.Document, error)
}
