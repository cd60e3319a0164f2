package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// MatchQuery parameterises a similarity search.
type MatchQuery struct {
	// Embedding is the query vector.
	Embedding []float32

	// Threshold excludes matches with similarity <= Threshold.
	Threshold float64

	// Count caps the number of matches.
	Count int

	// DocumentID restricts matching to one document.
	DocumentID int64
}

// ChunkStore persists documents and chunks and answers similarity queries.
// Backed by SQLite for metadata storage.
type ChunkStore interface {
	// GetOrCreateDocument returns the document for filename, creating it
	// on first use. Repeated calls return the same ID.
	GetOrCreateDocument(ctx context.Context, filename string) (*domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// ListDocuments returns every registered document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// InsertChunk stores one chunk and sets its ID.
	InsertChunk(ctx context.Context, chunk *domain.Chunk) error

	// GetChunks returns all chunks of a document in insertion order.
	GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// ChunksWithoutEmbedding returns the chunks of a document whose
	// embedding is unset.
	ChunksWithoutEmbedding(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// UpdateEmbedding sets the embedding of one chunk.
	UpdateEmbedding(ctx context.Context, chunkID int64, embedding []float32) error

	// CountChunksBySource counts chunks stored for a source file name.
	CountChunksBySource(ctx context.Context, sourceFile string) (int, error)

	// MatchChunks returns chunks ranked by descending cosine similarity.
	MatchChunks(ctx context.Context, q MatchQuery) ([]domain.ChunkMatch, error)

	// Close releases resources.
	Close() error
}
