package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		wantID int64
		wantOK bool
	}{
		{name: "valid", uri: "clause://documents/12", wantID: 12, wantOK: true},
		{name: "wrong scheme", uri: "file://documents/12"},
		{name: "not a number", uri: "clause://documents/abc"},
		{name: "zero", uri: "clause://documents/0"},
		{name: "empty", uri: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := extractDocumentID(tt.uri)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestServer_handleVariablesResource(t *testing.T) {
	server := newTestServer(t, &Ports{})

	res, err := server.handleVariablesResource(context.Background(), makeReadResourceRequest("clause://variables"))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var vars []VariableOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &vars))
	assert.Len(t, vars, 2)
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("lists documents", func(t *testing.T) {
		server := newTestServer(t, &Ports{Ingest: &mockIngestService{docs: []domain.Document{
			{ID: 1, Filename: "a.pdf", CreatedAt: created},
			{ID: 2, Filename: "b.pdf", CreatedAt: created},
		}}})

		res, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("clause://documents"))
		require.NoError(t, err)

		var docs []documentInfo
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &docs))
		require.Len(t, docs, 2)
		assert.Equal(t, "b.pdf", docs[1].Filename)
		assert.Equal(t, "2024-03-01T12:00:00Z", docs[0].CreatedAt)
	})

	t.Run("no ingest service gives an empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		res, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("clause://documents"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})

	t.Run("store error", func(t *testing.T) {
		server := newTestServer(t, &Ports{Ingest: &mockIngestService{err: errors.New("db closed")}})
		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("clause://documents"))
		assert.Error(t, err)
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &Ports{Ingest: &mockIngestService{docs: []domain.Document{
		{ID: 4, Filename: "contract.pdf"},
	}}})

	res, err := server.handleDocumentResource(ctx, makeReadResourceRequest("clause://documents/4"))
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"filename": "contract.pdf"`)

	_, err = server.handleDocumentResource(ctx, makeReadResourceRequest("clause://documents/5"))
	assert.Error(t, err)

	_, err = server.handleDocumentResource(ctx, makeReadResourceRequest("clause://documents/x"))
	assert.Error(t, err)
}
