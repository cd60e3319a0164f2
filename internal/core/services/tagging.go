package services

import (
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/tagger"
)

// Ensure TaggingService implements the interface.
var _ driving.TaggingService = (*TaggingService)(nil)

// TaggingService exposes the rule tagger to driving adapters.
type TaggingService struct {
	tagger *tagger.Tagger
}

// NewTaggingService creates a tagging service.
func NewTaggingService() *TaggingService {
	return &TaggingService{tagger: tagger.New()}
}

// Tag returns text with semantic tag markers inserted.
func (s *TaggingService) Tag(text string) string {
	return s.tagger.Tag(text)
}
