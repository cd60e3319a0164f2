// Package domain defines the core business entities for clause.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Element: A layout element produced by PDF partitioning
//   - Tag: The semantic tag vocabulary and its markup helpers
//   - ChunkRecord: A chunk as emitted by the title chunker
//   - Chunk: A stored, optionally embedded, retrieval unit
//   - Document: A contract registered by filename
//   - Variable: A question pair from the extraction catalogue
//   - PipelineResult: Per-stage outcome of processing one PDF
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
