// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Partitioner: Turns a PDF into layout elements
//   - Chunker: Groups enriched elements into chunk records
//   - ElementStore: JSON artifact persistence between stages
//   - ChunkStore: Document and chunk persistence with similarity search
//   - LLMService: Generation oracle for tagging, descriptions and answers
//   - EmbeddingService: Embedding oracle for chunks and questions
//   - PromptStore: Prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PageInspector: Page geometry for annotation manifests
//   - Archive: Object storage copy of uploaded PDFs
//   - EmbeddingCache: Shared vector cache in front of the embedding oracle
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
