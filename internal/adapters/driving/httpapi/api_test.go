package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	router     *gin.Engine
	contract   *mockContractService
	extraction *mockExtractionService
	ingest     *mockIngestService
	runs       *mockRunHistory
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	f := &fixture{
		contract: &mockContractService{},
		extraction: &mockExtractionService{answers: map[string]string{
			"deal_name": "License Agreement",
		}},
		ingest: &mockIngestService{docs: []domain.Document{{
			ID:        7,
			Filename:  "contract.pdf",
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}}},
		runs: &mockRunHistory{},
	}
	api, err := NewAPI(Ports{
		Contract:   f.contract,
		Extraction: f.extraction,
		Ingest:     f.ingest,
		Tagging:    upperTagger{},
		Runs:       f.runs,
	}, maxUpload)
	require.NoError(t, err)
	f.router = NewRouter(api, time.Minute)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestNewAPI_RequiresContract(t *testing.T) {
	_, err := NewAPI(Ports{}, 0)
	assert.ErrorIs(t, err, ErrMissingContractService)
}

func TestRoot(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RAG Processing API", decode(t, rec)["message"])
}

func TestHealth_RequestID(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = f.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestUpload(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(uploadRequest(t, "file", "contract.pdf", "%PDF-1.4"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(7), body["document_id"])
	assert.Equal(t, map[string]any{"deal_name": "License Agreement"}, body["processing_results"])
	assert.Equal(t, "%PDF-1.4", f.contract.uploads["contract.pdf"])
}

func TestUpload_Errors(t *testing.T) {
	t.Run("non-PDF", func(t *testing.T) {
		f := newFixture(t, 0)
		rec := f.do(uploadRequest(t, "file", "notes.txt", "hello"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "only PDF files are allowed")
	})

	t.Run("missing file field", func(t *testing.T) {
		f := newFixture(t, 0)
		rec := f.do(uploadRequest(t, "document", "contract.pdf", "%PDF-1.4"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "'file'")
	})

	t.Run("pipeline failure", func(t *testing.T) {
		f := newFixture(t, 0)
		f.contract.err = fmt.Errorf("%w: partitioning failed", domain.ErrPipeline)
		rec := f.do(uploadRequest(t, "file", "contract.pdf", "%PDF-1.4"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "partitioning failed")
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t, 64)
		rec := f.do(uploadRequest(t, "file", "contract.pdf", strings.Repeat("x", 1024)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestVariables(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/variables", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
	vars := body["variables"].([]any)
	assert.Equal(t, "deal_name", vars[0].(map[string]any)["name"])
}

func TestExtract(t *testing.T) {
	t.Run("whole catalogue", func(t *testing.T) {
		f := newFixture(t, 0)
		rec := f.do(httptest.NewRequest(http.MethodPost, "/documents/7/extract", nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, map[string]any{"deal_name": "License Agreement"}, body["results"])
		assert.Equal(t, []any{"contract_currency"}, body["missing"])
		assert.Equal(t, int64(7), f.extraction.lastID)
		assert.Len(t, f.extraction.lastVars, 2)
	})

	t.Run("selected variables", func(t *testing.T) {
		f := newFixture(t, 0)
		req := httptest.NewRequest(http.MethodPost, "/documents/7/extract",
			strings.NewReader(`{"variables":["deal_name"]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := f.do(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decode(t, rec)["missing"])
		require.Len(t, f.extraction.lastVars, 1)
		assert.Equal(t, "deal_name", f.extraction.lastVars[0].Name)
	})

	t.Run("unknown variable", func(t *testing.T) {
		f := newFixture(t, 0)
		req := httptest.NewRequest(http.MethodPost, "/documents/7/extract",
			strings.NewReader(`{"variables":["royalty_rate"]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := f.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		f := newFixture(t, 0)
		for _, id := range []string{"abc", "0", "-3"} {
			rec := f.do(httptest.NewRequest(http.MethodPost, "/documents/"+id+"/extract", nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		}
	})
}

func TestQuery(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/documents/7/query/deal_name", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "License Agreement", body["value"])
	assert.Len(t, body["matches"], 1)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/documents/7/query/contract_currency", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/documents/7/query/royalty_rate", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmbeddings(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/documents/7/embeddings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["updated"])

	f.ingest.backfillErr = errors.New("database is locked")
	rec = f.do(httptest.NewRequest(http.MethodPost, "/documents/7/embeddings", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database is locked", decode(t, rec)["detail"])
}

func TestDocuments(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/documents/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "contract.pdf", body["filename"])
	assert.Equal(t, "2024-03-01T12:00:00Z", body["created_at"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/documents/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTag(t *testing.T) {
	f := newFixture(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/tag", strings.NewReader(`{"text":"the Licensor grants"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the <PARTY>Licensor</PARTY> grants", decode(t, rec)["tagged"])

	req = httptest.NewRequest(http.MethodPost, "/tag", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.runs.lastLimit)
	runs := decode(t, rec)["runs"].([]any)
	assert.Equal(t, "contract.pdf", runs[0].(map[string]any)["pdf_name"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, f.runs.lastLimit)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/runs?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnconfiguredServices(t *testing.T) {
	api, err := NewAPI(Ports{Contract: &mockContractService{}}, 0)
	require.NoError(t, err)
	router := NewRouter(api, 0)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/variables"},
		{http.MethodGet, "/runs"},
		{http.MethodGet, "/documents"},
		{http.MethodPost, "/documents/1/extract"},
		{http.MethodPost, "/documents/1/embeddings"},
		{http.MethodPost, "/tag"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusNotImplemented, rec.Code, tc.path)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("x: %w", domain.ErrInvalidInput)))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("x: %w", domain.ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.ErrEmbedding))
}

func TestTimeoutMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(TimeoutMiddleware(time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.String(http.StatusGatewayTimeout, c.Request.Context().Err().Error())
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, context.DeadlineExceeded.Error(), rec.Body.String())
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv, err := NewServer(domain.ServerSettings{Addr: "127.0.0.1:0"}, Ports{Contract: &mockContractService{}})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
	assert.NotNil(t, srv.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
