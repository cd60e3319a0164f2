package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu        sync.RWMutex
	nextDocID int64
	nextID    int64
	documents map[int64]domain.Document
	byName    map[string]int64
	chunks    []domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[int64]domain.Document),
		byName:    make(map[string]int64),
	}
}

// GetOrCreateDocument returns the document for filename, creating it on first use.
func (s *ChunkStore) GetOrCreateDocument(_ context.Context, filename string) (*domain.Document, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[filename]; ok {
		doc := s.documents[id]
		return &doc, nil
	}
	s.nextDocID++
	doc := domain.Document{ID: s.nextDocID, Filename: filename, CreatedAt: time.Now()}
	s.documents[doc.ID] = doc
	s.byName[filename] = doc.ID
	return &doc, nil
}

// GetDocument retrieves a document by ID.
func (s *ChunkStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns every document ordered by ID.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// InsertChunk stores a copy of the chunk and sets its ID.
func (s *ChunkStore) InsertChunk(_ context.Context, chunk *domain.Chunk) error {
	if chunk == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[chunk.DocumentID]; !ok {
		return domain.ErrChunkInsert
	}
	s.nextID++
	chunk.ID = s.nextID
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	stored := *chunk
	stored.Embedding = cloneVector(chunk.Embedding)
	s.chunks = append(s.chunks, stored)
	return nil
}

// GetChunks returns all chunks of a document in insertion order.
func (s *ChunkStore) GetChunks(_ context.Context, documentID int64) ([]domain.Chunk, error) {
	return s.filter(func(c *domain.Chunk) bool { return c.DocumentID == documentID }), nil
}

// ChunksWithoutEmbedding returns the chunks of a document whose embedding is unset.
func (s *ChunkStore) ChunksWithoutEmbedding(_ context.Context, documentID int64) ([]domain.Chunk, error) {
	return s.filter(func(c *domain.Chunk) bool {
		return c.DocumentID == documentID && !c.HasEmbedding()
	}), nil
}

// UpdateEmbedding sets the embedding of one chunk.
func (s *ChunkStore) UpdateEmbedding(_ context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) == 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chunks {
		if s.chunks[i].ID == chunkID {
			s.chunks[i].Embedding = cloneVector(embedding)
			return nil
		}
	}
	return domain.ErrNotFound
}

// CountChunksBySource counts chunks stored for a source file name.
func (s *ChunkStore) CountChunksBySource(_ context.Context, sourceFile string) (int, error) {
	return len(s.filter(func(c *domain.Chunk) bool { return c.SourceFile == sourceFile })), nil
}

// MatchChunks ranks the embedded chunks of one document by cosine similarity.
func (s *ChunkStore) MatchChunks(_ context.Context, q driven.MatchQuery) ([]domain.ChunkMatch, error) {
	if len(q.Embedding) == 0 {
		return nil, domain.ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []domain.ChunkMatch
	for i := range s.chunks {
		c := &s.chunks[i]
		if c.DocumentID != q.DocumentID || !c.HasEmbedding() {
			continue
		}
		sim, ok := domain.CosineSimilarity(q.Embedding, c.Embedding)
		if !ok || sim <= q.Threshold {
			continue
		}
		matches = append(matches, domain.ChunkMatch{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			PageNumber: c.StartPageNumber,
			Similarity: sim,
		})
	}
	return domain.RankMatches(matches, q.Count), nil
}

// Close is a no-op for the in-memory store.
func (s *ChunkStore) Close() error {
	return nil
}

func (s *ChunkStore) filter(keep func(*domain.Chunk) bool) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for i := range s.chunks {
		if keep(&s.chunks[i]) {
			c := s.chunks[i]
			c.Embedding = cloneVector(c.Embedding)
			out = append(out, c)
		}
	}
	return out
}

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	return append([]float32(nil), v...)
}
