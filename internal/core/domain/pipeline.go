package domain

import (
	"errors"
	"time"
)

// PipelineState is a state of the per-PDF processing machine.
type PipelineState string

// Pipeline states. Failed is absorbing.
const (
	StateIdle         PipelineState = "idle"
	StatePartitioning PipelineState = "partitioning"
	StateEnriching    PipelineState = "enriching"
	StateChunking     PipelineState = "chunking"
	StateAnnotating   PipelineState = "annotating"
	StateDone         PipelineState = "done"
	StateFailed       PipelineState = "failed"
)

// String returns the string representation.
func (s PipelineState) String() string {
	return string(s)
}

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StagePartition Stage = "partition"
	StageEnrich    Stage = "enrich"
	StageChunk     Stage = "chunk"
	StageAnnotate  Stage = "annotate"
)

// StageOutcome records what happened to one stage.
type StageOutcome struct {
	Stage   Stage         `json:"stage"`
	Skipped bool          `json:"skipped"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// OK reports whether the stage completed or was skipped.
func (o StageOutcome) OK() bool {
	return o.Err == nil
}

// PipelineResult is the outcome of processing one PDF.
type PipelineResult struct {
	PDFPath       string         `json:"pdf_path"`
	PartitionPath string         `json:"partition_path"`
	ChunkPath     string         `json:"chunk_path"`
	State         PipelineState  `json:"state"`
	Stages        []StageOutcome `json:"stages"`
}

// Record appends a stage outcome.
func (r *PipelineResult) Record(o StageOutcome) {
	if o.Err != nil {
		o.Error = o.Err.Error()
	}
	r.Stages = append(r.Stages, o)
}

// Success is the conjunction of all stage outcomes.
func (r *PipelineResult) Success() bool {
	if r.State == StateFailed {
		return false
	}
	for _, o := range r.Stages {
		if !o.OK() {
			return false
		}
	}
	return true
}

// Outcome returns the recorded outcome for a stage.
func (r *PipelineResult) Outcome(stage Stage) (StageOutcome, bool) {
	for _, o := range r.Stages {
		if o.Stage == stage {
			return o, true
		}
	}
	return StageOutcome{}, false
}

// FatalError returns the first failure among partition, enrich and chunk.
// Annotation failures do not block ingestion.
func (r *PipelineResult) FatalError() error {
	for _, o := range r.Stages {
		if o.Stage == StageAnnotate {
			continue
		}
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// Err joins every stage failure.
func (r *PipelineResult) Err() error {
	var errs []error
	for _, o := range r.Stages {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// EnrichReport summarises one enrichment run over an element file.
type EnrichReport struct {
	Elements    int `json:"elements"`
	Enriched    int `json:"enriched"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Resumed     int `json:"resumed"`
	Checkpoints int `json:"checkpoints"`
}

// InsertReport summarises inserting a chunk file.
type InsertReport struct {
	DocumentID int64  `json:"document_id"`
	SourceFile string `json:"source_file"`
	Inserted   int    `json:"inserted"`
	Embedded   int    `json:"embedded"`
	Failed     int    `json:"failed"`
}

// BackfillReport summarises an embedding backfill pass.
type BackfillReport struct {
	DocumentID int64 `json:"document_id"`
	Pending    int   `json:"pending"`
	Updated    int   `json:"updated"`
	Failed     int   `json:"failed"`
}

// UploadResult is returned by the upload use case.
type UploadResult struct {
	Status            string            `json:"status"`
	DocumentID        int64             `json:"document_id"`
	ProcessingResults map[string]string `json:"processing_results"`
}

// PipelineRun is a persisted record of one Process call.
type PipelineRun struct {
	ID        string         `json:"id"`
	PDFName   string         `json:"pdf_name"`
	State     PipelineState  `json:"state"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Stages    []StageOutcome `json:"stages"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}
