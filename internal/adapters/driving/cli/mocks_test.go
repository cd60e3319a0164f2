package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
	setProvider domain.AIProvider
	setModel    string
	setKey      string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) Path() string { return "/tmp/clause/config.toml" }

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, key string) error {
	m.setProvider, m.setModel, m.setKey = p, model, key
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, key string) error {
	m.setProvider, m.setModel, m.setKey = p, model, key
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

type mockContractService struct {
	ingested []string
	fail     map[string]error
}

func (m *mockContractService) Upload(_ context.Context, name string, _ io.Reader) (*domain.UploadResult, error) {
	return m.Ingest(context.Background(), name)
}

func (m *mockContractService) Ingest(_ context.Context, path string) (*domain.UploadResult, error) {
	if err := m.fail[filepath.Base(path)]; err != nil {
		return nil, err
	}
	m.ingested = append(m.ingested, path)
	return &domain.UploadResult{
		Status:     "success",
		DocumentID: int64(len(m.ingested)),
		ProcessingResults: map[string]string{
			"deal_name": "Master Services Agreement",
			"territory": "Worldwide",
		},
	}, nil
}

type mockPipelineService struct {
	processed  []string
	chunkFiles []string
}

func (m *mockPipelineService) Process(_ context.Context, pdfPath string) (*domain.PipelineResult, error) {
	m.processed = append(m.processed, pdfPath)
	return &domain.PipelineResult{
		PDFPath:   pdfPath,
		ChunkPath: "/out/02_chunked/" + strings.TrimSuffix(filepath.Base(pdfPath), ".pdf") + ".json",
		State:     domain.StateDone,
		Stages: []domain.StageOutcome{
			{Stage: domain.StagePartition, Skipped: true},
			{Stage: domain.StageEnrich},
		},
	}, nil
}

func (m *mockPipelineService) ProcessDirectory(ctx context.Context) ([]*domain.PipelineResult, error) {
	res, err := m.Process(ctx, "/in/all.pdf")
	return []*domain.PipelineResult{res}, err
}

func (m *mockPipelineService) ChunkPath(pdfName string) string {
	return "/out/02_chunked/" + pdfName + ".json"
}

func (m *mockPipelineService) ChunkFiles() ([]string, error) { return m.chunkFiles, nil }

type mockIngestService struct {
	inserted   []string
	insertErr  error
	backfilled int64
	pending    int
	docs       []domain.Document
}

func (m *mockIngestService) InsertChunks(_ context.Context, path string) (domain.InsertReport, error) {
	if m.insertErr != nil {
		return domain.InsertReport{}, m.insertErr
	}
	m.inserted = append(m.inserted, path)
	return domain.InsertReport{
		DocumentID: int64(len(m.inserted)),
		SourceFile: strings.TrimSuffix(filepath.Base(path), ".json") + ".pdf",
		Inserted:   4,
		Embedded:   3,
		Failed:     1,
	}, nil
}

func (m *mockIngestService) ProcessEmbeddings(_ context.Context, id int64) (domain.BackfillReport, error) {
	m.backfilled = id
	return domain.BackfillReport{DocumentID: id, Pending: m.pending, Updated: m.pending}, nil
}

func (m *mockIngestService) IsProcessed(context.Context, string) (bool, error) { return false, nil }

func (m *mockIngestService) Documents(context.Context) ([]domain.Document, error) { return m.docs, nil }

func (m *mockIngestService) Document(_ context.Context, id int64) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
}

type mockExtractionService struct {
	answers map[string]string
	lastIDs []int64
	matches []domain.ChunkMatch
}

func (m *mockExtractionService) ProcessVariables(_ context.Context, vars []domain.Variable, id int64) map[string]string {
	m.lastIDs = append(m.lastIDs, id)
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
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return &driving.Answer{Variable: v.Name, Value: a, Matches: m.matches}, nil
}

func (m *mockExtractionService) Variables() []domain.Variable {
	return []domain.Variable{
		{Name: "deal_name", RetrieveQuestion: "What is the deal called?", GenerateQuestion: "Name the deal."},
		{Name: "territory", RetrieveQuestion: "Where does the license apply?", GenerateQuestion: "Give the territory."},
		{Name: "fees", RetrieveQuestion: "What fees are due?", GenerateQuestion: "List the fees."},
	}
}

type mockTaggingService struct{}

func (mockTaggingService) Tag(text string) string {
	return strings.ReplaceAll(text, "Licensor", "<PARTY>Licensor</PARTY>")
}

type mockRunHistory struct {
	runs      []domain.PipelineRun
	lastLimit int
}

func (m *mockRunHistory) ListRuns(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	m.lastLimit = limit
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings   *mockSettingsService
	contract   *mockContractService
	pipeline   *mockPipelineService
	ingest     *mockIngestService
	extraction *mockExtractionService
	runs       *mockRunHistory
	app        *domain.AppSettings
}

var mocks *testServices

// setupTestServices installs mock services and returns a cleanup func that
// clears them and resets command flags.
func setupTestServices() func() {
	app := domain.DefaultAppSettings()
	mocks = &testServices{
		settings: &mockSettingsService{settings: app},
		contract: &mockContractService{},
		pipeline: &mockPipelineService{},
		ingest: &mockIngestService{
			docs: []domain.Document{
				{ID: 1, Filename: "alpha.pdf", CreatedAt: testTime},
				{ID: 2, Filename: "beta.pdf", CreatedAt: testTime.Add(time.Hour)},
			},
		},
		extraction: &mockExtractionService{
			answers: map[string]string{"deal_name": "Master Services Agreement", "territory": "Worldwide"},
		},
		runs: &mockRunHistory{},
		app:  &app,
	}

	SetServices(&Services{
		Settings:    mocks.settings,
		Contract:    mocks.contract,
		Pipeline:    mocks.pipeline,
		Ingest:      mocks.ingest,
		Extraction:  mocks.extraction,
		Tagging:     mockTaggingService{},
		Runs:        mocks.runs,
		AppSettings: mocks.app,
	})

	return func() {
		SetServices(nil)
		mocks = nil
		resetFlags()
	}
}

func resetFlags() {
	ingestPipelineOnly = false
	ingestJSON = false
	extractVariables = nil
	extractJSON = false
	queryExplain = false
	variablesJSON = false
	documentsJSON = false
	runsJSON = false
	runsLimit = 20
	serveAddr = ""
	serveWatch = false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
