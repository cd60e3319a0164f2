package driving

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// EnrichmentService tags and describes the elements of a partitioned PDF.
type EnrichmentService interface {
	// EnrichFile enriches the element collection at path in place.
	// Per-element failures are counted in the report, not returned.
	EnrichFile(ctx context.Context, path string) (domain.EnrichReport, error)
}

// TaggingService applies the rule tagger to free text.
type TaggingService interface {
	// Tag returns text with semantic tag markers inserted.
	Tag(text string) string
}
