package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// Stage artifact directories under the output directory.
const (
	PartitionedDir = "01_partitioned"
	ChunkedDir     = "02_chunked"
	AnnotatedDir   = "03_annotated_pages"
)

// PipelineConfig holds the directories the pipeline reads and writes.
type PipelineConfig struct {
	InputDir  string
	OutputDir string
}

// PipelineService runs partition, enrich, chunk and annotate for each PDF.
// Every stage is skipped when its artifact already exists, so an
// interrupted run resumes where it stopped.
type PipelineService struct {
	partitioner driven.Partitioner
	enricher    driving.EnrichmentService
	chunker     driven.Chunker
	store       driven.ElementStore
	pages       driven.PageInspector
	runs        driven.RunStore
	cfg         PipelineConfig
}

// NewPipelineService creates a pipeline service.
func NewPipelineService(
	partitioner driven.Partitioner,
	enricher driving.EnrichmentService,
	chunker driven.Chunker,
	store driven.ElementStore,
	cfg PipelineConfig,
) *PipelineService {
	return &PipelineService{
		partitioner: partitioner,
		enricher:    enricher,
		chunker:     chunker,
		store:       store,
		cfg:         cfg,
	}
}

// SetPageInspector sets the page geometry source for annotation manifests.
// Without one, annotation is skipped.
func (s *PipelineService) SetPageInspector(pages driven.PageInspector) {
	s.pages = pages
}

// SetRunStore sets the store that records every Process call.
func (s *PipelineService) SetRunStore(runs driven.RunStore) {
	s.runs = runs
}

// PartitionPath returns the element artifact path for a PDF file name.
func (s *PipelineService) PartitionPath(pdfName string) string {
	return filepath.Join(s.cfg.OutputDir, PartitionedDir, pdfName+".json")
}

// ChunkPath returns the normalized chunk artifact path for a PDF file name.
func (s *PipelineService) ChunkPath(pdfName string) string {
	return filepath.Join(s.cfg.OutputDir, ChunkedDir, pdfName+".json")
}

// rawChunkPath is where the chunk stage writes: the partition artifact
// name plus .json.
func (s *PipelineService) rawChunkPath(pdfName string) string {
	return s.ChunkPath(pdfName) + ".json"
}

// AnnotationPath returns the manifest path for one page.
func (s *PipelineService) AnnotationPath(pdfName string, page int) string {
	stem := strings.TrimSuffix(pdfName, filepath.Ext(pdfName))
	return filepath.Join(s.cfg.OutputDir, AnnotatedDir, fmt.Sprintf("%s-%d-annotated.json", stem, page))
}

// Process runs the stage machine for one PDF. Stage failures are reported
// in the result; the error return is reserved for unusable input.
func (s *PipelineService) Process(ctx context.Context, pdfPath string) (*domain.PipelineResult, error) {
	info, err := os.Stat(pdfPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a readable file", domain.ErrInvalidInput, pdfPath)
	}

	name := filepath.Base(pdfPath)
	result := &domain.PipelineResult{
		PDFPath:       pdfPath,
		PartitionPath: s.PartitionPath(name),
		ChunkPath:     s.ChunkPath(name),
		State:         domain.StateIdle,
	}
	run := &domain.PipelineRun{
		ID:        uuid.NewString(),
		PDFName:   name,
		State:     domain.StateIdle,
		StartedAt: time.Now(),
	}
	log := logger.With(logger.Fields{"pdf": name, "run": run.ID})
	log.Info("processing started")

	defer func() {
		run.State = result.State
		run.Success = result.Success()
		run.Stages = result.Stages
		run.EndedAt = time.Now()
		if err := result.Err(); err != nil {
			run.Error = err.Error()
		}
		s.record(ctx, run)
	}()

	s.transition(ctx, result, run, domain.StatePartitioning)
	result.Record(s.stage(ctx, domain.StagePartition, fileExists(result.PartitionPath), func() error {
		return s.partition(ctx, pdfPath, result.PartitionPath)
	}))
	if out, _ := result.Outcome(domain.StagePartition); !out.OK() {
		result.State = domain.StateFailed
		log.Errorf("partitioning failed: %v", out.Err)
		return result, nil
	}

	chunked := func() bool {
		return fileExists(result.ChunkPath) || fileExists(s.rawChunkPath(name))
	}

	s.transition(ctx, result, run, domain.StateEnriching)
	result.Record(s.stage(ctx, domain.StageEnrich, chunked(), func() error {
		_, err := s.enricher.EnrichFile(ctx, result.PartitionPath)
		return err
	}))

	s.transition(ctx, result, run, domain.StateChunking)
	result.Record(s.stage(ctx, domain.StageChunk, chunked(), func() error {
		return s.chunk(ctx, name, result.PartitionPath)
	}))

	if n, err := NormalizeChunkNames(filepath.Join(s.cfg.OutputDir, ChunkedDir)); err != nil {
		log.Warnf("normalizing chunk file names failed: %v", err)
	} else if n > 0 {
		log.Debugf("renamed %d chunk files", n)
	}

	s.transition(ctx, result, run, domain.StateAnnotating)
	result.Record(s.stage(ctx, domain.StageAnnotate, s.pages == nil, func() error {
		return s.annotate(ctx, pdfPath, result.PartitionPath)
	}))

	if result.FatalError() != nil {
		result.State = domain.StateFailed
	} else {
		result.State = domain.StateDone
	}
	log.WithField("success", result.Success()).Info("processing finished")
	return result, nil
}

// ProcessDirectory processes every PDF in the input directory in name
// order. A PDF that cannot be processed does not stop the others.
func (s *PipelineService) ProcessDirectory(ctx context.Context) ([]*domain.PipelineResult, error) {
	entries, err := os.ReadDir(s.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsPDF(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	logger.Info("Processing %d PDF files from %s", len(names), s.cfg.InputDir)

	var results []*domain.PipelineResult //nolint:prealloc // failed inputs produce no result
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.Process(ctx, filepath.Join(s.cfg.InputDir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// ChunkFiles normalizes the chunk directory and returns every chunk file
// in it, sorted by name.
func (s *PipelineService) ChunkFiles() ([]string, error) {
	dir := filepath.Join(s.cfg.OutputDir, ChunkedDir)
	if n, err := NormalizeChunkNames(dir); err != nil {
		return nil, fmt.Errorf("normalize chunk names: %w", err)
	} else if n > 0 {
		logger.Debug("Renamed %d chunk files in %s", n, dir)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsPDF reports whether name has a .pdf extension, ignoring case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// NormalizeChunkNames renames every *.json.json file in dir to *.json and
// returns the number of files renamed. A missing directory is not an error.
func NormalizeChunkNames(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	renamed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json.json") {
			continue
		}
		from := filepath.Join(dir, e.Name())
		to := filepath.Join(dir, strings.TrimSuffix(e.Name(), ".json"))
		if err := os.Rename(from, to); err != nil {
			errs = append(errs, err)
			continue
		}
		renamed++
	}
	return renamed, errors.Join(errs...)
}

func (s *PipelineService) transition(ctx context.Context, result *domain.PipelineResult, run *domain.PipelineRun, state domain.PipelineState) {
	result.State = state
	run.State = state
	run.Stages = result.Stages
	logger.Debug("%s: %s", run.PDFName, state)
	s.record(ctx, run)
}

// stage runs fn unless skip is set and times it. Cancellation is reported
// as the stage error.
func (s *PipelineService) stage(ctx context.Context, stage domain.Stage, skip bool, fn func() error) domain.StageOutcome {
	out := domain.StageOutcome{Stage: stage}
	if skip {
		out.Skipped = true
		logger.Debug("Stage %s skipped", stage)
		return out
	}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	start := time.Now()
	out.Err = fn()
	out.Elapsed = time.Since(start)
	return out
}

func (s *PipelineService) partition(ctx context.Context, pdfPath, outPath string) error {
	elements, err := s.partitioner.Partition(ctx, pdfPath)
	if err != nil {
		return err
	}
	if err := s.store.SaveElements(ctx, outPath, elements); err != nil {
		return fmt.Errorf("%w: save elements: %w", domain.ErrPartitioning, err)
	}
	logger.Debug("Partitioned %s into %d elements with %s", pdfPath, len(elements), s.partitioner.Name())
	return nil
}

func (s *PipelineService) chunk(ctx context.Context, pdfName, partitionPath string) error {
	elements, err := s.store.LoadElements(ctx, partitionPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrChunking, err)
	}
	records, err := s.chunker.Chunk(ctx, pdfName, elements)
	if err != nil {
		if errors.Is(err, domain.ErrChunking) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrChunking, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no chunks produced", domain.ErrChunking)
	}
	if err := s.store.SaveChunkRecords(ctx, s.rawChunkPath(pdfName), records); err != nil {
		return fmt.Errorf("%w: save chunks: %w", domain.ErrChunking, err)
	}
	logger.Debug("Chunked %s into %d records with %s", pdfName, len(records), s.chunker.Name())
	return nil
}

// annotate writes one layout manifest per page. Pages whose manifest
// already exists are left alone.
func (s *PipelineService) annotate(ctx context.Context, pdfPath, partitionPath string) error {
	pages, err := s.pages.Pages(ctx, pdfPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAnnotation, err)
	}
	elements, err := s.store.LoadElements(ctx, partitionPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAnnotation, err)
	}

	byPage := make(map[int][]domain.Element)
	for _, e := range elements {
		byPage[e.Metadata.PageNumber] = append(byPage[e.Metadata.PageNumber], e)
	}

	name := filepath.Base(pdfPath)
	for _, page := range pages {
		path := s.AnnotationPath(name, page.Number)
		if fileExists(path) {
			continue
		}

		manifest := domain.PageManifest{
			PDF:    name,
			Page:   page.Number,
			Width:  page.Width,
			Height: page.Height,
			Legend: domain.AnnotationLegend(),
			Boxes:  []domain.AnnotationBox{},
		}
		for i := range byPage[page.Number] {
			e := &byPage[page.Number][i]
			polygon, ok := e.ScaledPolygon(page.Width, page.Height)
			if !ok {
				continue
			}
			manifest.Boxes = append(manifest.Boxes, domain.AnnotationBox{
				ElementID: e.ElementID,
				Type:      e.Type,
				Color:     domain.AnnotationColor(e.Type),
				Polygon:   polygon,
			})
		}

		if err := s.store.SaveJSON(ctx, path, manifest); err != nil {
			return fmt.Errorf("%w: page %d: %w", domain.ErrAnnotation, page.Number, err)
		}
	}
	return nil
}

func (s *PipelineService) record(ctx context.Context, run *domain.PipelineRun) {
	if s.runs == nil {
		return
	}
	// The run is recorded even when ctx was cancelled mid-stage.
	if err := s.runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("recording run %s failed: %v", run.ID, err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
