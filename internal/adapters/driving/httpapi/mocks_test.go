package httpapi

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

type mockContractService struct {
	uploads  map[string]string
	err      error
	lastName string
}

func (m *mockContractService) Upload(_ context.Context, name string, r io.Reader) (*domain.UploadResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return nil, fmt.Errorf("%w: only PDF files are allowed", domain.ErrInvalidInput)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if m.uploads == nil {
		m.uploads = make(map[string]string)
	}
	m.uploads[name] = string(data)
	m.lastName = name
	return &domain.UploadResult{
		Status:            "success",
		DocumentID:        7,
		ProcessingResults: map[string]string{"deal_name": "License Agreement"},
	}, nil
}

func (m *mockContractService) Ingest(context.Context, string) (*domain.UploadResult, error) {
	return nil, domain.ErrInvalidInput
}

type mockExtractionService struct {
	answers  map[string]string
	lastVars []domain.Variable
	lastID   int64
}

func (m *mockExtractionService) ProcessVariables(_ context.Context, vars []domain.Variable, id int64) map[string]string {
	m.lastVars = vars
	m.lastID = id
	out := make(map[string]string)
	for _, v := range vars {
		if a, ok := m.answers[v.Name]; ok {
			out[v.Name] = a
		}
	}
	return out
}

func (m *mockExtractionService) Query(_ context.Context, v domain.Variable, id int64) (*driving.Answer, error) {
	a, ok := m.answers[v.Name]
	if !ok {
		return nil, fmt.Errorf("%w: no context for %s", domain.ErrNotFound, v.Name)
	}
	return &driving.Answer{
		Variable: v.Name,
		Value:    a,
		Matches:  []domain.ChunkMatch{{ID: 1, DocumentID: id, Text: "LICENSE AGREEMENT", Similarity: 0.9}},
	}, nil
}

func (m *mockExtractionService) Variables() []domain.Variable {
	return []domain.Variable{
		{Name: "deal_name", RetrieveQuestion: "r1", GenerateQuestion: "g1"},
		{Name: "contract_currency", RetrieveQuestion: "r2", GenerateQuestion: "g2"},
	}
}

type mockIngestService struct {
	docs        []domain.Document
	backfillErr error
}

func (m *mockIngestService) InsertChunks(context.Context, string) (domain.InsertReport, error) {
	return domain.InsertReport{}, nil
}

func (m *mockIngestService) ProcessEmbeddings(_ context.Context, id int64) (domain.BackfillReport, error) {
	if m.backfillErr != nil {
		return domain.BackfillReport{}, m.backfillErr
	}
	return domain.BackfillReport{DocumentID: id, Pending: 2, Updated: 2}, nil
}

func (m *mockIngestService) IsProcessed(context.Context, string) (bool, error) {
	return false, nil
}

func (m *mockIngestService) Documents(context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockIngestService) Document(_ context.Context, id int64) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
}

type upperTagger struct{}

func (upperTagger) Tag(text string) string {
	return strings.ReplaceAll(text, "Licensor", "<PARTY>Licensor</PARTY>")
}

type mockRunHistory struct {
	lastLimit int
}

func (m *mockRunHistory) ListRuns(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	m.lastLimit = limit
	return []domain.PipelineRun{{
		ID:        "run-1",
		PDFName:   "contract.pdf",
		State:     domain.StateDone,
		Success:   true,
		StartedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC),
	}}, nil
}
