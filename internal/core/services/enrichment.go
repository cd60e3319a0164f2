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

// Ensure EnrichmentService implements the interface.
var _ driving.EnrichmentService = (*EnrichmentService)(nil)

// Oracle call limits per element kind.
const (
	textMaxTokens  = 2000
	imageMaxTokens = 300
	tableMaxTokens = 1500
)

// EnrichmentConfig selects the models used per element kind. Empty values
// leave the LLM service default.
type EnrichmentConfig struct {
	TextModel   string
	VisionModel string
}

// EnrichmentService tags narrative text, describes images and tables, and
// tags titles with the rule tagger. Elements are processed kind by kind in
// a fixed order: NarrativeText, Image, Table, Title.
type EnrichmentService struct {
	store   driven.ElementStore
	llm     driven.LLMService
	prompts driven.PromptStore
	titles  driving.TaggingService
	cfg     EnrichmentConfig
}

// NewEnrichmentService creates an enrichment service. titles may be nil,
// in which case the built-in rule tagger is used.
func NewEnrichmentService(
	store driven.ElementStore,
	llm driven.LLMService,
	prompts driven.PromptStore,
	titles driving.TaggingService,
	cfg EnrichmentConfig,
) *EnrichmentService {
	if titles == nil {
		titles = NewTaggingService()
	}
	return &EnrichmentService{
		store:   store,
		llm:     llm,
		prompts: prompts,
		titles:  titles,
		cfg:     cfg,
	}
}

// enrichRun carries the state of one EnrichFile call.
type enrichRun struct {
	path     string
	elements []domain.Element
	report   domain.EnrichReport
}

// EnrichFile enriches the element collection at path in place.
func (s *EnrichmentService) EnrichFile(ctx context.Context, path string) (domain.EnrichReport, error) {
	if s.llm == nil {
		return domain.EnrichReport{}, domain.ErrLLMUnavailable
	}

	logger.Section("Enrichment")
	elements, err := s.store.LoadElements(ctx, path)
	if err != nil {
		return domain.EnrichReport{}, fmt.Errorf("%w: load %s: %w", domain.ErrEnrichment, path, err)
	}

	run := &enrichRun{path: path, elements: elements}
	run.report.Elements = len(elements)

	s.each(ctx, run, domain.ElementNarrativeText, s.enrichText)
	s.each(ctx, run, domain.ElementImage, s.enrichImage)
	s.each(ctx, run, domain.ElementTable, s.enrichTable)
	s.each(ctx, run, domain.ElementTitle, s.enrichTitle)

	if err := ctx.Err(); err != nil {
		return run.report, err
	}

	if err := s.store.SaveElements(ctx, path, run.elements); err != nil {
		return run.report, fmt.Errorf("%w: save %s: %w", domain.ErrEnrichment, path, err)
	}

	logger.With(logger.Fields{
		"file":     path,
		"enriched": run.report.Enriched,
		"skipped":  run.report.Skipped,
		"failed":   run.report.Failed,
		"resumed":  run.report.Resumed,
	}).Info("enrichment complete")
	return run.report, nil
}

// enrichFunc enriches one element. It returns checkpoint=true when the
// collection should be persisted afterwards, and skipped=true when the
// element had nothing to enrich.
type enrichFunc func(ctx context.Context, e *domain.Element) (skipped, checkpoint bool, err error)

func (s *EnrichmentService) each(ctx context.Context, run *enrichRun, kind domain.ElementType, fn enrichFunc) {
	for i := range run.elements {
		if ctx.Err() != nil {
			return
		}
		e := &run.elements[i]
		if e.Type != kind {
			continue
		}
		if e.Metadata.Enriched {
			run.report.Resumed++
			continue
		}

		skipped, checkpoint, err := fn(ctx, e)
		switch {
		case err != nil:
			run.report.Failed++
			logger.With(logger.Fields{"element": e.ElementID, "type": kind}).Warnf("enrichment failed: %v", err)
			continue
		case skipped:
			run.report.Skipped++
			continue
		}

		e.Metadata.Enriched = true
		run.report.Enriched++

		if checkpoint {
			if err := s.store.SaveElements(ctx, run.path, run.elements); err != nil {
				logger.Warn("checkpoint of %s failed: %v", run.path, err)
				continue
			}
			run.report.Checkpoints++
		}
	}
}

func (s *EnrichmentService) enrichText(ctx context.Context, e *domain.Element) (bool, bool, error) {
	if strings.TrimSpace(e.Text) == "" {
		return true, false, nil
	}

	system, err := s.prompts.Load(driven.PromptTagSystem)
	if err != nil {
		return false, false, err
	}
	tmpl, err := s.prompts.Load(driven.PromptTagText)
	if err != nil {
		return false, false, err
	}

	out, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(tmpl, e.Text)},
	}, driven.ChatOptions{
		Model:       s.cfg.TextModel,
		MaxTokens:   textMaxTokens,
		Temperature: driven.Temperature(0),
	})
	if err != nil {
		return false, false, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	out = strings.TrimSpace(out)
	if !domain.TagsPreserveText(e.Text, out) {
		return false, false, domain.ErrTagMismatch
	}
	e.Text = out
	return false, false, nil
}

func (s *EnrichmentService) enrichImage(ctx context.Context, e *domain.Element) (bool, bool, error) {
	return s.describe(ctx, e, driven.PromptDescribeImage, imageMaxTokens)
}

func (s *EnrichmentService) enrichTable(ctx context.Context, e *domain.Element) (bool, bool, error) {
	return s.describe(ctx, e, driven.PromptDescribeTable, tableMaxTokens)
}

// describe sends the element's image payload with a fixed prompt and stores
// the reply as the element text.
func (s *EnrichmentService) describe(ctx context.Context, e *domain.Element, prompt string, maxTokens int) (bool, bool, error) {
	if !e.Metadata.HasImage() {
		logger.Warn("skipping %s %s without image payload", e.Type, e.ElementID)
		return true, false, nil
	}

	tmpl, err := s.prompts.Load(prompt)
	if err != nil {
		return false, false, err
	}

	out, err := s.llm.Chat(ctx, []driven.ChatMessage{{
		Role:    driven.RoleUser,
		Content: tmpl,
		Images:  []driven.ImagePart{{MIMEType: e.ImageMIME(), Base64: e.Metadata.ImageBase64}},
	}}, driven.ChatOptions{
		Model:       s.cfg.VisionModel,
		MaxTokens:   maxTokens,
		Temperature: driven.Temperature(0),
	})
	if err != nil {
		return false, false, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	e.Text = strings.TrimSpace(out)
	return false, true, nil
}

func (s *EnrichmentService) enrichTitle(_ context.Context, e *domain.Element) (bool, bool, error) {
	if e.Text == "" {
		return true, false, nil
	}
	e.Text = s.titles.Tag(e.Text)
	return false, false, nil
}
