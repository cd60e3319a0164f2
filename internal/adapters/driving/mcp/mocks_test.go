package mcp

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

// mockExtractionService is a mock implementation of driving.ExtractionService.
type mockExtractionService struct {
	vars    []domain.Variable
	results map[string]string
	gotVars []domain.Variable
	gotDoc  int64
}

func (m *mockExtractionService) ProcessVariables(_ context.Context, vars []domain.Variable, documentID int64) map[string]string {
	m.gotVars = vars
	m.gotDoc = documentID
	out := make(map[string]string)
	for _, v := range vars {
		if r, ok := m.results[v.Name]; ok {
			out[v.Name] = r
		}
	}
	return out
}

func (m *mockExtractionService) Query(_ context.Context, v domain.Variable, _ int64) (*driving.Answer, error) {
	r, ok := m.results[v.Name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &driving.Answer{Variable: v.Name, Value: r}, nil
}

func (m *mockExtractionService) Variables() []domain.Variable {
	return m.vars
}

// mockTaggingService is a mock implementation of driving.TaggingService.
type mockTaggingService struct{}

func (m *mockTaggingService) Tag(text string) string {
	return strings.ReplaceAll(text, "licensor", "<PARTY>licensor</PARTY>")
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	docs []domain.Document
	err  error
}

func (m *mockIngestService) InsertChunks(_ context.Context, _ string) (domain.InsertReport, error) {
	return domain.InsertReport{}, m.err
}

func (m *mockIngestService) ProcessEmbeddings(_ context.Context, id int64) (domain.BackfillReport, error) {
	return domain.BackfillReport{DocumentID: id}, m.err
}

func (m *mockIngestService) IsProcessed(_ context.Context, _ string) (bool, error) {
	return len(m.docs) > 0, m.err
}

func (m *mockIngestService) Documents(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockIngestService) Document(_ context.Context, id int64) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockContractService is a mock implementation of driving.ContractService.
type mockContractService struct {
	result *domain.UploadResult
	err    error
	path   string
}

func (m *mockContractService) Upload(_ context.Context, _ string, _ io.Reader) (*domain.UploadResult, error) {
	return m.result, m.err
}

func (m *mockContractService) Ingest(_ context.Context, path string) (*domain.UploadResult, error) {
	m.path = path
	return m.result, m.err
}

func testVariables() []domain.Variable {
	return []domain.Variable{
		{Name: "deal_name", RetrieveQuestion: "find the agreement", GenerateQuestion: "name the agreement"},
		{Name: "contract_currency", RetrieveQuestion: "find euro amounts", GenerateQuestion: "return EUR"},
	}
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Extraction == nil {
		ports.Extraction = &mockExtractionService{vars: testVariables()}
	}
	if ports.Tagging == nil {
		ports.Tagging = &mockTaggingService{}
	}
	s, err := NewServer(ports, "test")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}
