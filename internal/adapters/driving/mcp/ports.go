package mcp

import (
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Extraction answers catalogue variables for stored documents.
	Extraction driving.ExtractionService

	// Tagging applies the rule tagger.
	Tagging driving.TaggingService

	// Ingest lists stored documents. Optional.
	Ingest driving.IngestService

	// Contract runs the full flow for a PDF on disk. Optional.
	Contract driving.ContractService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Extraction == nil {
		return ErrMissingExtractionService
	}
	if p.Tagging == nil {
		return ErrMissingTaggingService
	}
	return nil
}
