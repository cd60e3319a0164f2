package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure ExtractionService implements the interface.
var _ driving.ExtractionService = (*ExtractionService)(nil)

// ExtractionConfig configures retrieval and generation.
type ExtractionConfig struct {
	// Threshold excludes matches at or below this similarity.
	Threshold float64

	// Count caps the matches used as context.
	Count int

	// Model overrides the LLM service default for answers.
	Model string

	// Variables is the catalogue. Nil means domain.DefaultVariables().
	Variables []domain.Variable
}

// ExtractionService answers catalogue questions by retrieving similar
// chunks of one document and asking the LLM to extract the value from them.
type ExtractionService struct {
	chunks    driven.ChunkStore
	embedding driven.EmbeddingService
	llm       driven.LLMService
	prompts   driven.PromptStore
	cfg       ExtractionConfig
}

// NewExtractionService creates an extraction service.
func NewExtractionService(
	chunks driven.ChunkStore,
	embedding driven.EmbeddingService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg ExtractionConfig,
) *ExtractionService {
	if cfg.Count <= 0 {
		cfg.Count = domain.DefaultMatchCount
	}
	if cfg.Variables == nil {
		cfg.Variables = domain.DefaultVariables()
	}
	return &ExtractionService{
		chunks:    chunks,
		embedding: embedding,
		llm:       llm,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// Variables returns a copy of the active catalogue.
func (s *ExtractionService) Variables() []domain.Variable {
	out := make([]domain.Variable, len(s.cfg.Variables))
	copy(out, s.cfg.Variables)
	return out
}

// ProcessVariables answers each variable for the document. Variables whose
// retrieval is empty or whose generation fails are left out.
func (s *ExtractionService) ProcessVariables(ctx context.Context, vars []domain.Variable, documentID int64) map[string]string {
	logger.Section("Process Variables")
	results := make(map[string]string, len(vars))

	for _, v := range vars {
		if ctx.Err() != nil {
			break
		}
		log := logger.With(logger.Fields{"variable": v.Name, "document_id": documentID})

		answer, err := s.Query(ctx, v, documentID)
		if err != nil {
			log.Warnf("variable skipped: %v", err)
			continue
		}
		results[v.Name] = answer.Value
		log.Debugf("answer: %q", answer.Value)
	}

	return results
}

// Query answers one variable and returns the matches it was generated from.
func (s *ExtractionService) Query(ctx context.Context, v domain.Variable, documentID int64) (*driving.Answer, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	vec, err := s.embedding.Embed(ctx, v.RetrieveQuestion)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	matches, err := s.chunks.MatchChunks(ctx, driven.MatchQuery{
		Embedding:  vec,
		Threshold:  s.cfg.Threshold,
		Count:      s.cfg.Count,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, fmt.Errorf("match chunks: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no chunks matched %s in document %d", domain.ErrNotFound, v.Name, documentID)
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}

	system, err := s.prompts.Load(driven.PromptExtractSystem)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.prompts.Load(driven.PromptExtractAnswer)
	if err != nil {
		return nil, err
	}

	out, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(tmpl, v.GenerateQuestion, strings.Join(texts, "\n"))},
	}, driven.ChatOptions{Model: s.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	return &driving.Answer{
		Variable: v.Name,
		Value:    strings.TrimSpace(out),
		Matches:  matches,
	}, nil
}
