package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure ContractService implements the interface.
var _ driving.ContractService = (*ContractService)(nil)

// Upload statuses.
const (
	StatusSuccess = "success"
)

// ContractService is the upload use case: save the PDF, run the pipeline,
// store its chunks, backfill embeddings and answer the catalogue.
// Calls for the same file name are serialized.
type ContractService struct {
	pipeline   driving.PipelineService
	ingest     driving.IngestService
	extraction driving.ExtractionService
	archive    driven.Archive
	inputDir   string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewContractService creates a contract service that saves uploads into
// inputDir.
func NewContractService(
	pipeline driving.PipelineService,
	ingest driving.IngestService,
	extraction driving.ExtractionService,
	inputDir string,
) *ContractService {
	return &ContractService{
		pipeline:   pipeline,
		ingest:     ingest,
		extraction: extraction,
		inputDir:   inputDir,
		locks:      make(map[string]*sync.Mutex),
	}
}

// SetArchive enables copying uploads to object storage.
func (s *ContractService) SetArchive(archive driven.Archive) {
	s.archive = archive
}

// Upload saves r as filename in the input directory and runs the flow.
func (s *ContractService) Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadResult, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || !IsPDF(name) {
		return nil, fmt.Errorf("%w: only PDF files are allowed", domain.ErrInvalidInput)
	}

	unlock := s.lock(name)
	defer unlock()

	path := filepath.Join(s.inputDir, name)
	size, err := saveFile(path, r)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	logger.Info("Saved upload %s (%d bytes)", path, size)

	if s.archive != nil {
		s.archiveCopy(ctx, path, name, size)
	}

	result, err := s.run(ctx, path)
	if errors.Is(err, domain.ErrPipeline) {
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn("removing failed upload %s: %v", path, rmErr)
		}
	}
	return result, err
}

// Ingest runs the flow for a PDF already on disk.
func (s *ContractService) Ingest(ctx context.Context, pdfPath string) (*domain.UploadResult, error) {
	if !IsPDF(pdfPath) {
		return nil, fmt.Errorf("%w: only PDF files are allowed", domain.ErrInvalidInput)
	}
	unlock := s.lock(filepath.Base(pdfPath))
	defer unlock()
	return s.run(ctx, pdfPath)
}

func (s *ContractService) run(ctx context.Context, pdfPath string) (*domain.UploadResult, error) {
	name := filepath.Base(pdfPath)

	res, err := s.pipeline.Process(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	if fatal := res.FatalError(); fatal != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPipeline, fatal)
	}

	var documentID int64
	processed, err := s.ingest.IsProcessed(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check stored chunks: %w", err)
	}
	if processed {
		docs, err := s.ingest.Documents(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if d.Filename == name {
				documentID = d.ID
				break
			}
		}
		logger.Info("Chunks for %s already stored as document %d", name, documentID)
	} else {
		report, err := s.ingest.InsertChunks(ctx, s.pipeline.ChunkPath(name))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPipeline, err)
		}
		documentID = report.DocumentID
	}
	if documentID == 0 {
		return nil, fmt.Errorf("%w: no document stored for %s", domain.ErrPipeline, name)
	}

	if _, err := s.ingest.ProcessEmbeddings(ctx, documentID); err != nil {
		logger.Warn("embedding backfill for document %d failed: %v", documentID, err)
	}

	answers := s.extraction.ProcessVariables(ctx, s.extraction.Variables(), documentID)
	return &domain.UploadResult{
		Status:            StatusSuccess,
		DocumentID:        documentID,
		ProcessingResults: answers,
	}, nil
}

func (s *ContractService) archiveCopy(ctx context.Context, path, name string, size int64) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("archive %s: %v", name, err)
		return
	}
	defer f.Close()
	if err := s.archive.Put(ctx, name, f, size, "application/pdf"); err != nil {
		logger.Warn("archive %s: %v", name, err)
	}
}

// lock serializes work on one file name and returns the unlock func.
func (s *ContractService) lock(name string) func() {
	s.mu.Lock()
	m, ok := s.locks[name]
	if !ok {
		m = &sync.Mutex{}
		s.locks[name] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// saveFile writes r to path through a temporary file in the same directory.
func saveFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	return n, os.Rename(tmp.Name(), path)
}
