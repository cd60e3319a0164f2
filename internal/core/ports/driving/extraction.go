package driving

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// Answer is one extracted value with the context it was generated from.
type Answer struct {
	Variable string              `json:"variable"`
	Value    string              `json:"value"`
	Matches  []domain.ChunkMatch `json:"matches"`
}

// ExtractionService answers catalogue questions against stored chunks.
type ExtractionService interface {
	// ProcessVariables answers each variable for the document. Variables
	// with no retrieved context or a failed generation are absent.
	ProcessVariables(ctx context.Context, vars []domain.Variable, documentID int64) map[string]string

	// Query answers one variable and returns the retrieved matches.
	// Returns ErrNotFound when retrieval is empty.
	Query(ctx context.Context, v domain.Variable, documentID int64) (*Answer, error)

	// Variables returns the active catalogue.
	Variables() []domain.Variable
}
