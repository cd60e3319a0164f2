package domain

import (
	"encoding/json"
	"time"
)

// Document is a contract registered by its source filename.
// The filename is unique; lookup-or-create on it is idempotent.
type Document struct {
	// ID is the store-assigned identifier.
	ID int64

	// Filename is the chunk source name, e.g. "contract.pdf".
	Filename string

	// CreatedAt is when the document was first registered.
	CreatedAt time.Time
}

// ChunkRecordMetadata is the metadata block of a chunked JSON record.
type ChunkRecordMetadata struct {
	Filetype   string   `json:"filetype,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	PageNumber int      `json:"page_number,omitempty"`

	// OrigElements is passed through opaquely. The chunker emits either an
	// encoded string or an element array depending on version.
	OrigElements json.RawMessage `json:"orig_elements,omitempty"`
}

// ChunkRecord is one entry of the chunker's JSON output.
type ChunkRecord struct {
	Type      string              `json:"type,omitempty"`
	ElementID string              `json:"element_id"`
	Text      string              `json:"text"`
	Metadata  ChunkRecordMetadata `json:"metadata"`
}

// Chunk is a stored retrieval unit. Embedding is nil until computed;
// a zero vector is never used as a placeholder.
type Chunk struct {
	// ID is the store-assigned identifier.
	ID int64

	// ElementID is the chunker's element id.
	ElementID string

	// DocumentID links to the owning Document.
	DocumentID int64

	// Text is the tagged chunk text.
	Text string

	// StartPageNumber and EndPageNumber bound the pages the chunk spans.
	StartPageNumber int
	EndPageNumber   int

	// SourceFile is the chunk file name with the .json suffix removed.
	SourceFile string

	Filetype     string
	Languages    []string
	OrigElements string

	// Embedding is the vector representation, nil when absent.
	Embedding []float32

	CreatedAt time.Time
}

// HasEmbedding reports whether the chunk has been embedded.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ChunkMatch is a retrieval hit ranked by cosine similarity.
type ChunkMatch struct {
	ID         int64   `json:"id"`
	DocumentID int64   `json:"document_id"`
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number"`
	Similarity float64 `json:"similarity"`
}
