// Package sqlite provides a SQLite-based implementation of the chunk store and
// pipeline run history.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - ChunkStore: Documents, chunks, embeddings and similarity matching
//   - RunStore: Pipeline run history
//
// # Similarity
//
// Embeddings are stored as little-endian float32 blobs. MatchChunks scans the
// embedded chunks of one document and ranks them by cosine similarity in Go;
// contract documents hold tens of chunks, not millions.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.clause/data/clause.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
