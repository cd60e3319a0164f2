package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/logger"
)

// Guard throttles oracle calls with a token bucket and retries calls that
// fail with domain.ErrRateLimited, doubling the backoff each time.
// One Guard is shared by every oracle talking to the same provider.
type Guard struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	retryAt    time.Time
	maxRetries int
	backoff    time.Duration
}

// NewGuard creates a guard from oracle settings. A zero rate disables throttling.
func NewGuard(cfg domain.OracleSettings) *Guard {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	backoff := cfg.InitialBackoff.Std()
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Guard{
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: max(0, cfg.MaxRetries),
		backoff:    backoff,
	}
}

// Do runs fn under the rate limit, retrying rate-limited failures.
func (g *Guard) Do(ctx context.Context, op string, fn func() error) error {
	backoff := g.backoff
	for attempt := 0; ; attempt++ {
		if err := g.wait(ctx); err != nil {
			return err
		}
		err := fn()
		if err == nil || !errors.Is(err, domain.ErrRateLimited) || attempt >= g.maxRetries {
			return err
		}

		logger.Warn("%s rate limited, retrying in %s (attempt %d/%d)", op, backoff, attempt+1, g.maxRetries)
		g.recordRateLimit(backoff)
		backoff *= 2
	}
}

// wait blocks for any shared backoff and then for a token.
func (g *Guard) wait(ctx context.Context) error {
	g.mu.Lock()
	retryAt := g.retryAt
	g.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return g.limiter.Wait(ctx)
}

func (g *Guard) recordRateLimit(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if at := time.Now().Add(d); at.After(g.retryAt) {
		g.retryAt = at
	}
}

// ==================== Guarded Services ====================

// guardedLLM wraps an LLMService with a Guard.
type guardedLLM struct {
	driven.LLMService
	guard *Guard
}

var _ driven.LLMService = (*guardedLLM)(nil)

// GuardLLM returns svc with every Chat call passing through guard.
func GuardLLM(svc driven.LLMService, guard *Guard) driven.LLMService {
	if svc == nil || guard == nil {
		return svc
	}
	return &guardedLLM{LLMService: svc, guard: guard}
}

func (s *guardedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var out string
	err := s.guard.Do(ctx, "chat", func() error {
		var err error
		out, err = s.LLMService.Chat(ctx, messages, opts)
		return err
	})
	return out, err
}

// guardedEmbedding wraps an EmbeddingService with a Guard.
type guardedEmbedding struct {
	driven.EmbeddingService
	guard *Guard
}

var _ driven.EmbeddingService = (*guardedEmbedding)(nil)

// GuardEmbedding returns svc with every embedding call passing through guard.
func GuardEmbedding(svc driven.EmbeddingService, guard *Guard) driven.EmbeddingService {
	if svc == nil || guard == nil {
		return svc
	}
	return &guardedEmbedding{EmbeddingService: svc, guard: guard}
}

func (s *guardedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := s.guard.Do(ctx, "embed", func() error {
		var err error
		out, err = s.EmbeddingService.Embed(ctx, text)
		return err
	})
	return out, err
}

func (s *guardedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := s.guard.Do(ctx, "embed batch", func() error {
		var err error
		out, err = s.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}
