// Package cached wraps an embedding service with a read-through cache.
package cached

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService consults the cache before calling the wrapped service.
// Cache failures degrade to direct calls. The cache is not closed with it.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache driven.EmbeddingCache
}

// New wraps inner with cache. A nil cache returns inner unchanged.
func New(inner driven.EmbeddingService, cache driven.EmbeddingCache) driven.EmbeddingService {
	if cache == nil || inner == nil {
		return inner
	}
	return &EmbeddingService{inner: inner, cache: cache}
}

// Embed returns the cached vector or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	model := s.inner.ModelName()
	if vec, ok := s.lookup(ctx, model, text); ok {
		return vec, nil
	}

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.store(ctx, model, text, vec)
	return vec, nil
}

// EmbedBatch serves hits from the cache and sends only misses upstream.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := s.inner.ModelName()
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := s.lookup(ctx, model, text); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		if j >= len(missIdx) {
			break
		}
		out[missIdx[j]] = vec
		s.store(ctx, model, missTexts[j], vec)
	}
	return out, nil
}

func (s *EmbeddingService) lookup(ctx context.Context, model, text string) ([]float32, bool) {
	vec, ok, err := s.cache.Get(ctx, model, text)
	if err != nil {
		logger.Debug("embedding cache read failed: %v", err)
		return nil, false
	}
	return vec, ok
}

func (s *EmbeddingService) store(ctx context.Context, model, text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := s.cache.Put(ctx, model, text, vec); err != nil {
		logger.Debug("embedding cache write failed: %v", err)
	}
}

// Dimensions delegates to the wrapped service.
func (s *EmbeddingService) Dimensions() int { return s.inner.Dimensions() }

// ModelName delegates to the wrapped service.
func (s *EmbeddingService) ModelName() string { return s.inner.ModelName() }

// Ping delegates to the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close closes the wrapped service. The cache belongs to the caller.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
