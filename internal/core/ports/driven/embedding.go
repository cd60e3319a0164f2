// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService is the embedding oracle: text in, fixed-dimension vector out.
//
// Implementations include:
//   - OpenAI (text-embedding-ada-002, text-embedding-3-small)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCache stores vectors keyed by model and text. Optional.
type EmbeddingCache interface {
	// Get returns the cached vector, or ok=false on a miss.
	Get(ctx context.Context, model, text string) (vec []float32, ok bool, err error)

	// Put stores a vector.
	Put(ctx context.Context, model, text string, vec []float32) error

	// Close releases resources.
	Close() error
}
