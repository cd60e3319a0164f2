package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService stores chunk files and keeps embeddings complete.
type IngestService struct {
	elements  driven.ElementStore
	chunks    driven.ChunkStore
	embedding driven.EmbeddingService
}

// NewIngestService creates an ingest service. embedding may be nil; chunks
// are then stored without vectors and can be backfilled later.
func NewIngestService(elements driven.ElementStore, chunks driven.ChunkStore, embedding driven.EmbeddingService) *IngestService {
	return &IngestService{
		elements:  elements,
		chunks:    chunks,
		embedding: embedding,
	}
}

// SourceName returns the document name for a chunk file: the base name with
// the final .json extension removed, so "a.pdf.json" names "a.pdf".
func SourceName(chunkPath string) string {
	return strings.TrimSuffix(filepath.Base(chunkPath), ".json")
}

// InsertChunks stores every record of the chunk file at path.
// Per-record embedding and insert failures are logged and counted.
func (s *IngestService) InsertChunks(ctx context.Context, path string) (domain.InsertReport, error) {
	logger.Section("Insert Chunks")

	records, err := s.elements.LoadChunkRecords(ctx, path)
	if err != nil {
		return domain.InsertReport{}, fmt.Errorf("load %s: %w", path, err)
	}
	if len(records) == 0 {
		return domain.InsertReport{}, fmt.Errorf("%w: %s", domain.ErrEmptySource, path)
	}

	source := SourceName(path)
	doc, err := s.chunks.GetOrCreateDocument(ctx, source)
	if err != nil {
		return domain.InsertReport{}, fmt.Errorf("register document %s: %w", source, err)
	}

	report := domain.InsertReport{DocumentID: doc.ID, SourceFile: source}
	log := logger.With(logger.Fields{"document_id": doc.ID, "source": source})

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunk := &domain.Chunk{
			ElementID:       rec.ElementID,
			DocumentID:      doc.ID,
			Text:            rec.Text,
			StartPageNumber: rec.Metadata.PageNumber,
			EndPageNumber:   rec.Metadata.PageNumber,
			SourceFile:      source,
			Filetype:        rec.Metadata.Filetype,
			Languages:       rec.Metadata.Languages,
			OrigElements:    origElementsString(rec.Metadata.OrigElements),
		}

		if vec, err := s.embed(ctx, rec.Text); err != nil {
			log.Warnf("embedding chunk %d failed, storing without vector: %v", i, err)
		} else {
			chunk.Embedding = vec
		}

		if err := s.chunks.InsertChunk(ctx, chunk); err != nil {
			report.Failed++
			log.Errorf("insert chunk %d failed: %v", i, err)
			continue
		}
		report.Inserted++
		if chunk.HasEmbedding() {
			report.Embedded++
		}
	}

	log.Infof("inserted %d/%d chunks (%d embedded)", report.Inserted, len(records), report.Embedded)
	return report, nil
}

// ProcessEmbeddings embeds the chunks of a document that have none.
func (s *IngestService) ProcessEmbeddings(ctx context.Context, documentID int64) (domain.BackfillReport, error) {
	report := domain.BackfillReport{DocumentID: documentID}
	if s.embedding == nil {
		return report, domain.ErrEmbeddingUnavailable
	}

	pending, err := s.chunks.ChunksWithoutEmbedding(ctx, documentID)
	if err != nil {
		return report, fmt.Errorf("list chunks without embedding: %w", err)
	}
	report.Pending = len(pending)

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		vec, err := s.embed(ctx, c.Text)
		if err != nil {
			report.Failed++
			logger.Warn("embedding chunk %d failed: %v", c.ID, err)
			continue
		}
		if err := s.chunks.UpdateEmbedding(ctx, c.ID, vec); err != nil {
			report.Failed++
			logger.Warn("updating chunk %d failed: %v", c.ID, err)
			continue
		}
		report.Updated++
	}

	logger.Debug("Backfill document %d: %d pending, %d updated, %d failed",
		documentID, report.Pending, report.Updated, report.Failed)
	return report, nil
}

// IsProcessed reports whether chunks exist for the source file name.
func (s *IngestService) IsProcessed(ctx context.Context, sourceFile string) (bool, error) {
	n, err := s.chunks.CountChunksBySource(ctx, sourceFile)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Documents lists registered documents.
func (s *IngestService) Documents(ctx context.Context) ([]domain.Document, error) {
	return s.chunks.ListDocuments(ctx)
}

// Document resolves one document.
func (s *IngestService) Document(ctx context.Context, id int64) (*domain.Document, error) {
	return s.chunks.GetDocument(ctx, id)
}

// embed returns nil with an error when no vector could be produced.
func (s *IngestService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vec, err := s.embedding.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, domain.ErrEmbedding
	}
	return vec, nil
}

// origElementsString keeps the chunker's value as stored text: a JSON
// string is unquoted, anything else is kept as raw JSON.
func origElementsString(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	return s
}
