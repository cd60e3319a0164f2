package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "clause-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func insertChunk(t *testing.T, cs driven.ChunkStore, docID int64, text string, emb []float32) *domain.Chunk {
	t.Helper()
	c := &domain.Chunk{
		ElementID:       "el-" + text,
		DocumentID:      docID,
		Text:            text,
		StartPageNumber: 1,
		EndPageNumber:   1,
		SourceFile:      "contract.pdf",
		Filetype:        "application/pdf",
		Languages:       []string{"eng"},
		Embedding:       emb,
	}
	require.NoError(t, cs.InsertChunk(context.Background(), c))
	require.NotZero(t, c.ID)
	return c
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, DatabaseFile, filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreRecorded(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestNewStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir)
	require.NoError(t, err)
	doc, err := s1.ChunkStore().GetOrCreateDocument(context.Background(), "a.pdf")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	again, err := s2.ChunkStore().GetOrCreateDocument(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
}

// ==================== Document Tests ====================

func TestGetOrCreateDocument_Idempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	first, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)
	second, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)
	other, err := cs.GetOrCreateDocument(ctx, "other.pdf")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, "contract.pdf", second.Filename)

	docs, err := cs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestGetOrCreateDocument_Concurrent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()

	ids := make([]int64, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := cs.GetOrCreateDocument(context.Background(), "race.pdf")
			if assert.NoError(t, err) {
				ids[i] = doc.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetOrCreateDocument_EmptyName(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.ChunkStore().GetOrCreateDocument(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.ChunkStore().GetDocument(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Chunk Tests ====================

func TestInsertChunk_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	doc, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)

	c := &domain.Chunk{
		ElementID:       "abc",
		DocumentID:      doc.ID,
		Text:            "<LEGAL>License Agreement</LEGAL>",
		StartPageNumber: 2,
		EndPageNumber:   3,
		SourceFile:      "contract.pdf",
		Filetype:        "application/pdf",
		Languages:       []string{"eng", "ita"},
		OrigElements:    "eJy...",
		Embedding:       []float32{0.5, -0.25, 1},
	}
	require.NoError(t, cs.InsertChunk(ctx, c))

	chunks, err := cs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	got := chunks[0]
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "abc", got.ElementID)
	assert.Equal(t, c.Text, got.Text)
	assert.Equal(t, 2, got.StartPageNumber)
	assert.Equal(t, 3, got.EndPageNumber)
	assert.Equal(t, []string{"eng", "ita"}, got.Languages)
	assert.Equal(t, "eJy...", got.OrigElements)
	assert.Equal(t, []float32{0.5, -0.25, 1}, got.Embedding)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestInsertChunk_NilEmbeddingStaysNull(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	doc, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)

	embedded := insertChunk(t, cs, doc.ID, "one", []float32{1, 0})
	missing := insertChunk(t, cs, doc.ID, "two", nil)

	var nulls int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM chunks WHERE embedding IS NULL").Scan(&nulls))
	assert.Equal(t, 1, nulls)

	pending, err := cs.ChunksWithoutEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, missing.ID, pending[0].ID)
	assert.False(t, pending[0].HasEmbedding())

	require.NoError(t, cs.UpdateEmbedding(ctx, missing.ID, []float32{0, 1}))
	pending, err = cs.ChunksWithoutEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	chunks, err := cs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
	assert.Equal(t, embedded.ID, chunks[0].ID)
}

func TestInsertChunk_UnknownDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.ChunkStore().InsertChunk(context.Background(), &domain.Chunk{
		ElementID: "x", DocumentID: 12345, Text: "t", SourceFile: "x.pdf",
	})
	assert.ErrorIs(t, err, domain.ErrChunkInsert)
}

func TestUpdateEmbedding_Errors(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()

	assert.ErrorIs(t, cs.UpdateEmbedding(context.Background(), 1, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, cs.UpdateEmbedding(context.Background(), 404, []float32{1}), domain.ErrNotFound)
}

func TestCountChunksBySource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	doc, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)
	insertChunk(t, cs, doc.ID, "a", nil)
	insertChunk(t, cs, doc.ID, "b", nil)

	n, err := cs.CountChunksBySource(ctx, "contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = cs.CountChunksBySource(ctx, "missing.pdf")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ==================== Match Tests ====================

func TestMatchChunks_RankingThresholdAndCount(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	doc, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)
	other, err := cs.GetOrCreateDocument(ctx, "other.pdf")
	require.NoError(t, err)

	same := insertChunk(t, cs, doc.ID, "same", []float32{1, 0})
	near := insertChunk(t, cs, doc.ID, "close", []float32{1, 1})
	orth := insertChunk(t, cs, doc.ID, "orthogonal", []float32{0, 1})
	insertChunk(t, cs, doc.ID, "opposite", []float32{-1, 0})
	insertChunk(t, cs, doc.ID, "unembedded", nil)
	insertChunk(t, cs, other.ID, "foreign", []float32{1, 0})

	matches, err := cs.MatchChunks(ctx, driven.MatchQuery{
		Embedding:  []float32{1, 0},
		Threshold:  -0.2,
		Count:      5,
		DocumentID: doc.ID,
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, same.ID, matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, near.ID, matches[1].ID)
	assert.InDelta(t, 0.7071, matches[1].Similarity, 1e-3)
	assert.Equal(t, orth.ID, matches[2].ID)
	assert.Equal(t, 1, matches[0].PageNumber)

	top, err := cs.MatchChunks(ctx, driven.MatchQuery{
		Embedding: []float32{1, 0}, Threshold: -0.2, Count: 1, DocumentID: doc.ID,
	})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, same.ID, top[0].ID)
}

func TestMatchChunks_NegativeSimilarityAboveThreshold(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	doc, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)
	// cos = -0.1
	insertChunk(t, cs, doc.ID, "slightly negative", []float32{-0.1, 0.99498744})

	matches, err := cs.MatchChunks(ctx, driven.MatchQuery{
		Embedding: []float32{1, 0}, Threshold: -0.2, Count: 5, DocumentID: doc.ID,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Less(t, matches[0].Similarity, 0.0)
}

func TestMatchChunks_EmptyResult(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	cs := store.ChunkStore()
	ctx := context.Background()

	doc, err := cs.GetOrCreateDocument(ctx, "contract.pdf")
	require.NoError(t, err)
	insertChunk(t, cs, doc.ID, "opposite", []float32{-1, 0})
	insertChunk(t, cs, doc.ID, "wrong dims", []float32{1, 0, 0})

	matches, err := cs.MatchChunks(ctx, driven.MatchQuery{
		Embedding: []float32{1, 0}, Threshold: -0.2, Count: 5, DocumentID: doc.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = cs.MatchChunks(ctx, driven.MatchQuery{DocumentID: doc.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ==================== Helper Tests ====================

func TestFloat32Blob_RoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -3.25, 1e-7}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
	assert.Nil(t, embeddingValue(nil))
}
