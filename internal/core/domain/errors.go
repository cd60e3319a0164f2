package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates a missing or invalid required setting.
	// Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// Pipeline Errors.

	// ErrPartitioning indicates the partitioner failed or returned nothing usable.
	// The pipeline stops for that PDF.
	ErrPartitioning = errors.New("partitioning failed")

	// ErrEnrichment indicates an element file could not be enriched.
	ErrEnrichment = errors.New("enrichment failed")

	// ErrChunking indicates the chunker failed.
	ErrChunking = errors.New("chunking failed")

	// ErrAnnotation indicates page annotation failed. Never blocks ingestion.
	ErrAnnotation = errors.New("annotation failed")

	// ErrPipeline wraps a fatal stage failure surfaced to the upload caller.
	ErrPipeline = errors.New("pipeline failed")

	// Storage and Retrieval Errors.

	// ErrChunkInsert indicates a chunk could not be stored.
	ErrChunkInsert = errors.New("chunk insert failed")

	// ErrEmptySource indicates a chunk or element file holds no records.
	ErrEmptySource = errors.New("empty source")

	// ErrSchemaViolation indicates a JSON artifact does not match its schema.
	ErrSchemaViolation = errors.New("schema violation")

	// Oracle Errors.

	// ErrEmbedding indicates the embedding oracle failed for one input.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the language model failed for one request.
	ErrGeneration = errors.New("generation failed")

	// ErrTagMismatch indicates tagged output altered the underlying text.
	ErrTagMismatch = errors.New("tagged text does not match source")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider rejected a request for rate.
	ErrRateLimited = errors.New("rate limited")
)
