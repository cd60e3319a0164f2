// Package mcp provides an MCP (Model Context Protocol) server adapter for clause.
// It lets AI assistants extract contract variables and tag text.
package mcp

import "errors"

var (
	// ErrMissingExtractionService is returned when the extraction service is not provided.
	ErrMissingExtractionService = errors.New("mcp: extraction service is required")

	// ErrMissingTaggingService is returned when the tagging service is not provided.
	ErrMissingTaggingService = errors.New("mcp: tagging service is required")

	// ErrIngestDisabled is returned by the ingest tool when no contract service is wired.
	ErrIngestDisabled = errors.New("mcp: ingest is not available")
)
