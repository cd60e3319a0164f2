// Package httpapi serves the contract upload and extraction API over HTTP
// with gin.
package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// ErrMissingContractService is returned when Ports has no contract service.
var ErrMissingContractService = errors.New("contract service is required")

// Ports holds the core services the API drives. Only Contract is
// required; routes backed by a nil service answer 501.
type Ports struct {
	Contract   driving.ContractService
	Extraction driving.ExtractionService
	Ingest     driving.IngestService
	Tagging    driving.TaggingService
	Runs       driving.RunHistory
}

// API provides the HTTP handlers.
type API struct {
	ports          Ports
	maxUploadBytes int64
}

// NewAPI creates the handlers. maxUploadBytes <= 0 disables the size limit.
func NewAPI(ports Ports, maxUploadBytes int64) (*API, error) {
	if ports.Contract == nil {
		return nil, ErrMissingContractService
	}
	return &API{ports: ports, maxUploadBytes: maxUploadBytes}, nil
}

// RootHandler identifies the service.
func (a *API) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "RAG Processing API"})
}

// HealthHandler reports liveness.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UploadHandler accepts a multipart PDF in the "file" field and runs the
// full processing flow on it.
func (a *API) UploadHandler(c *gin.Context) {
	if a.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		abort(c, http.StatusBadRequest, "a PDF must be sent in the 'file' form field")
		return
	}

	file, err := header.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}
	defer file.Close()

	result, err := a.ports.Contract.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// VariablesHandler lists the extraction catalogue.
func (a *API) VariablesHandler(c *gin.Context) {
	if a.ports.Extraction == nil {
		notConfigured(c, "extraction")
		return
	}
	vars := a.ports.Extraction.Variables()
	c.JSON(http.StatusOK, gin.H{"variables": vars, "count": len(vars)})
}

type extractRequest struct {
	Variables []string `json:"variables"`
}

type extractResponse struct {
	DocumentID int64             `json:"document_id"`
	Results    map[string]string `json:"results"`
	Missing    []string          `json:"missing,omitempty"`
}

// ExtractHandler answers catalogue variables for a stored document. The
// optional JSON body {"variables": [...]} narrows the catalogue.
func (a *API) ExtractHandler(c *gin.Context) {
	if a.ports.Extraction == nil {
		notConfigured(c, "extraction")
		return
	}
	id, ok := a.documentID(c)
	if !ok {
		return
	}

	var req extractRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	catalogue := a.ports.Extraction.Variables()
	vars := catalogue
	if len(req.Variables) > 0 {
		vars = make([]domain.Variable, 0, len(req.Variables))
		for _, name := range req.Variables {
			v, found := domain.FindVariable(catalogue, name)
			if !found {
				abort(c, http.StatusBadRequest, "unknown variable: "+name)
				return
			}
			vars = append(vars, v)
		}
	}

	results := a.ports.Extraction.ProcessVariables(c.Request.Context(), vars, id)
	resp := extractResponse{DocumentID: id, Results: results}
	for _, v := range vars {
		if _, answered := results[v.Name]; !answered {
			resp.Missing = append(resp.Missing, v.Name)
		}
	}
	sort.Strings(resp.Missing)
	c.JSON(http.StatusOK, resp)
}

// QueryHandler answers one variable and returns the retrieved context.
func (a *API) QueryHandler(c *gin.Context) {
	if a.ports.Extraction == nil {
		notConfigured(c, "extraction")
		return
	}
	id, ok := a.documentID(c)
	if !ok {
		return
	}

	v, found := domain.FindVariable(a.ports.Extraction.Variables(), c.Param("variable"))
	if !found {
		abort(c, http.StatusBadRequest, "unknown variable: "+c.Param("variable"))
		return
	}

	answer, err := a.ports.Extraction.Query(c.Request.Context(), v, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// EmbeddingsHandler backfills missing embeddings for a document.
func (a *API) EmbeddingsHandler(c *gin.Context) {
	if a.ports.Ingest == nil {
		notConfigured(c, "ingest")
		return
	}
	id, ok := a.documentID(c)
	if !ok {
		return
	}

	report, err := a.ports.Ingest.ProcessEmbeddings(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type documentResponse struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	CreatedAt string `json:"created_at"`
}

func toDocumentResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		Filename:  d.Filename,
		CreatedAt: d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// DocumentsHandler lists stored documents.
func (a *API) DocumentsHandler(c *gin.Context) {
	if a.ports.Ingest == nil {
		notConfigured(c, "ingest")
		return
	}
	docs, err := a.ports.Ingest.Documents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(docs[i])
	}
	c.JSON(http.StatusOK, gin.H{"documents": out, "count": len(out)})
}

// DocumentHandler returns one stored document.
func (a *API) DocumentHandler(c *gin.Context) {
	if a.ports.Ingest == nil {
		notConfigured(c, "ingest")
		return
	}
	id, ok := a.documentID(c)
	if !ok {
		return
	}
	doc, err := a.ports.Ingest.Document(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(*doc))
}

type tagRequest struct {
	Text string `json:"text" binding:"required"`
}

// TagHandler runs the rule tagger over free text.
func (a *API) TagHandler(c *gin.Context) {
	if a.ports.Tagging == nil {
		notConfigured(c, "tagging")
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "a non-empty 'text' field is required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tagged": a.ports.Tagging.Tag(req.Text)})
}

// RunsHandler lists recent pipeline runs, newest first.
func (a *API) RunsHandler(c *gin.Context) {
	if a.ports.Runs == nil {
		notConfigured(c, "run history")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		abort(c, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	runs, err := a.ports.Runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (a *API) documentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "document id must be a positive integer")
		return 0, false
	}
	return id, true
}

// StatusFor maps core errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.With(logger.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString(requestIDKey),
		}).WithError(err).Error("request failed")
	}
	abort(c, status, err.Error())
}

func notConfigured(c *gin.Context, what string) {
	abort(c, http.StatusNotImplemented, what+" is not configured")
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
