package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

func TestNewConfigValidator(t *testing.T) {
	v := NewConfigValidator()
	assert.NotNil(t, v)
}

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = NewConfigValidator()
}

func TestConfigValidator_NilConfig(t *testing.T) {
	v := NewConfigValidator()
	assert.ErrorIs(t, v.ValidateEmbedding(nil), domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, v.ValidateLLM(nil), domain.ErrLLMUnavailable)
}

func TestConfigValidator_UnconfiguredProvider(t *testing.T) {
	v := NewConfigValidator()
	assert.Error(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}))
	assert.Error(t, v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderAnthropic}))
}
