package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil extraction service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Tagging: &mockTaggingService{}}, "")
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingExtractionService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Extraction: &mockExtractionService{},
			Tagging:    &mockTaggingService{},
		}, "")
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("contract service enables ingest", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Extraction: &mockExtractionService{},
			Tagging:    &mockTaggingService{},
			Contract:   &mockContractService{},
		}, "1.2.3")
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingExtractionService)
	})

	t.Run("missing tagging", func(t *testing.T) {
		ports := &Ports{Extraction: &mockExtractionService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingTaggingService)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Extraction: &mockExtractionService{},
			Tagging:    &mockTaggingService{},
			Ingest:     &mockIngestService{},
			Contract:   &mockContractService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
