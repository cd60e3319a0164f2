package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

func TestNewChunkStore(t *testing.T) {
	store := NewChunkStore()
	require.NotNil(t, store)

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, store.Close())
}

func TestChunkStore_GetOrCreateDocument(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	a, err := store.GetOrCreateDocument(ctx, "a.pdf")
	require.NoError(t, err)
	again, err := store.GetOrCreateDocument(ctx, "a.pdf")
	require.NoError(t, err)
	b, err := store.GetOrCreateDocument(ctx, "b.pdf")
	require.NoError(t, err)

	assert.Equal(t, a.ID, again.ID)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := store.GetDocument(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", got.Filename)

	_, err = store.GetDocument(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetOrCreateDocument(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunkStore_InsertAndBackfill(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	doc, err := store.GetOrCreateDocument(ctx, "a.pdf")
	require.NoError(t, err)

	withVec := &domain.Chunk{DocumentID: doc.ID, Text: "one", SourceFile: "a.pdf", Embedding: []float32{1, 0}}
	without := &domain.Chunk{DocumentID: doc.ID, Text: "two", SourceFile: "a.pdf"}
	require.NoError(t, store.InsertChunk(ctx, withVec))
	require.NoError(t, store.InsertChunk(ctx, without))
	assert.Equal(t, int64(1), withVec.ID)
	assert.Equal(t, int64(2), without.ID)

	pending, err := store.ChunksWithoutEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, without.ID, pending[0].ID)

	require.NoError(t, store.UpdateEmbedding(ctx, without.ID, []float32{0, 1}))
	pending, err = store.ChunksWithoutEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, store.UpdateEmbedding(ctx, 42, []float32{1}), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateEmbedding(ctx, 1, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertChunk(ctx, &domain.Chunk{DocumentID: 77}), domain.ErrChunkInsert)

	n, err := store.CountChunksBySource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChunkStore_StoredVectorsAreCopies(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	doc, _ := store.GetOrCreateDocument(ctx, "a.pdf")

	vec := []float32{1, 2}
	require.NoError(t, store.InsertChunk(ctx, &domain.Chunk{DocumentID: doc.ID, Embedding: vec}))
	vec[0] = 99

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, chunks[0].Embedding)
}

func TestChunkStore_MatchChunks(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	doc, _ := store.GetOrCreateDocument(ctx, "a.pdf")
	other, _ := store.GetOrCreateDocument(ctx, "b.pdf")

	for _, c := range []domain.Chunk{
		{DocumentID: doc.ID, Text: "ortho", Embedding: []float32{0, 1}, StartPageNumber: 4},
		{DocumentID: doc.ID, Text: "same", Embedding: []float32{1, 0}, StartPageNumber: 1},
		{DocumentID: doc.ID, Text: "opposite", Embedding: []float32{-1, 0}},
		{DocumentID: doc.ID, Text: "pending"},
		{DocumentID: other.ID, Text: "foreign", Embedding: []float32{1, 0}},
	} {
		c := c
		require.NoError(t, store.InsertChunk(ctx, &c))
	}

	matches, err := store.MatchChunks(ctx, driven.MatchQuery{
		Embedding: []float32{1, 0}, Threshold: -0.2, Count: 5, DocumentID: doc.ID,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "same", matches[0].Text)
	assert.Equal(t, 1, matches[0].PageNumber)
	assert.Equal(t, "ortho", matches[1].Text)

	_, err = store.MatchChunks(ctx, driven.MatchQuery{DocumentID: doc.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
