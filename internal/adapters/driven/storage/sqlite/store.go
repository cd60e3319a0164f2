package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/clause/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "clause.db"

// Store is a SQLite-based storage that provides access to the chunk store
// and the pipeline run history through a single connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.clause/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".clause", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL mode for concurrent readers; pragmas in the DSN apply to every pooled connection
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// GetOrCreateDocument returns the document for filename, creating it on first use.
func (s *chunkStore) GetOrCreateDocument(ctx context.Context, filename string) (*domain.Document, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (filename, created_at) VALUES (?, ?)
		ON CONFLICT(filename) DO NOTHING
	`, filename, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, filename, created_at FROM documents WHERE filename = ?", filename)
	return scanDocument(row)
}

// GetDocument retrieves a document by ID.
func (s *chunkStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, filename, created_at FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// ListDocuments returns every registered document ordered by ID.
func (s *chunkStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, filename, created_at FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// InsertChunk stores one chunk and sets its ID. A nil embedding is stored as NULL.
func (s *chunkStore) InsertChunk(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil {
		return domain.ErrInvalidInput
	}

	languagesJSON, err := json.Marshal(chunk.Languages)
	if err != nil {
		return fmt.Errorf("marshalling languages: %w", err)
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chunks (element_id, document_id, text, start_page_number, end_page_number,
			source_file, filetype, languages, orig_elements, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, chunk.ElementID, chunk.DocumentID, chunk.Text, chunk.StartPageNumber, chunk.EndPageNumber,
		chunk.SourceFile, nullString(chunk.Filetype), string(languagesJSON), nullString(chunk.OrigElements),
		embeddingValue(chunk.Embedding), chunk.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrChunkInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading chunk id: %w", err)
	}
	chunk.ID = id
	return nil
}

const chunkColumns = `id, element_id, document_id, text, start_page_number, end_page_number,
	source_file, filetype, languages, orig_elements, embedding, created_at`

// GetChunks returns all chunks of a document in insertion order.
func (s *chunkStore) GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE document_id = ? ORDER BY id`, documentID)
}

// ChunksWithoutEmbedding returns the chunks of a document whose embedding is unset.
func (s *chunkStore) ChunksWithoutEmbedding(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	return s.queryChunks(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = ? AND embedding IS NULL ORDER BY id`, documentID)
}

// UpdateEmbedding sets the embedding of one chunk.
func (s *chunkStore) UpdateEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) == 0 {
		return domain.ErrInvalidInput
	}

	res, err := s.store.db.ExecContext(ctx,
		"UPDATE chunks SET embedding = ? WHERE id = ?", float32SliceToBytes(embedding), chunkID)
	if err != nil {
		return fmt.Errorf("updating embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountChunksBySource counts chunks stored for a source file name.
func (s *chunkStore) CountChunksBySource(ctx context.Context, sourceFile string) (int, error) {
	var n int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE source_file = ?", sourceFile)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// MatchChunks ranks the embedded chunks of one document by cosine similarity
// to the query, keeping those strictly above the threshold.
func (s *chunkStore) MatchChunks(ctx context.Context, q driven.MatchQuery) ([]domain.ChunkMatch, error) {
	if len(q.Embedding) == 0 {
		return nil, domain.ErrInvalidInput
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, text, start_page_number, embedding
		FROM chunks WHERE document_id = ? AND embedding IS NOT NULL
	`, q.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var matches []domain.ChunkMatch
	for rows.Next() {
		var m domain.ChunkMatch
		var page sql.NullInt64
		var blob []byte
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Text, &page, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		sim, ok := domain.CosineSimilarity(q.Embedding, bytesToFloat32Slice(blob))
		if !ok || sim <= q.Threshold {
			continue
		}
		m.PageNumber = int(page.Int64)
		m.Similarity = sim
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return domain.RankMatches(matches, q.Count), nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *chunkStore) Close() error {
	return nil
}

func (s *chunkStore) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
// Empty input maps to nil so the column stays NULL.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// embeddingValue binds an absent embedding as SQL NULL rather than an empty blob.
func embeddingValue(floats []float32) any {
	if len(floats) == 0 {
		return nil
	}
	return float32SliceToBytes(floats)
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var startPage, endPage sql.NullInt64
	var filetype, languagesJSON, origElements sql.NullString
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.ElementID, &chunk.DocumentID, &chunk.Text,
		&startPage, &endPage, &chunk.SourceFile, &filetype, &languagesJSON, &origElements,
		&embeddingBlob, &chunk.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.StartPageNumber = int(startPage.Int64)
	chunk.EndPageNumber = int(endPage.Int64)
	chunk.Filetype = filetype.String
	chunk.OrigElements = origElements.String
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if languagesJSON.Valid && languagesJSON.String != "" && languagesJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(languagesJSON.String), &chunk.Languages); err != nil {
			return nil, fmt.Errorf("unmarshaling languages: %w", err)
		}
	}

	return &chunk, nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"
