package driven

import "github.com/custodia-labs/clause/internal/core/domain"

// AIConfigValidator checks that configured providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the configured LLM provider.
	ValidateLLM(config *domain.LLMSettings) error
}
