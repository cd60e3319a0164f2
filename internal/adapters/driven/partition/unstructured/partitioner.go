package unstructured

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Partitioner implements the interface.
var _ driven.Partitioner = (*Partitioner)(nil)

// Partitioner sends PDFs to the partition endpoint with layout coordinates
// and base64 payloads for image and table blocks.
type Partitioner struct {
	client *client
}

// NewPartitioner creates a partitioner. Returns ErrConfiguration without an
// API key.
func NewPartitioner(cfg Config) (*Partitioner, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Partitioner{client: c}, nil
}

// Name returns the partitioner name.
func (p *Partitioner) Name() string {
	return "unstructured"
}

// Partition uploads the PDF and returns its elements in reading order.
func (p *Partitioner) Partition(ctx context.Context, pdfPath string) ([]domain.Element, error) {
	content, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPartitioning, pdfPath, err)
	}

	fields := []formField{
		{"strategy", p.client.strategy},
		{"coordinates", "true"},
		{"extract_image_block_types", string(domain.ElementImage)},
		{"extract_image_block_types", string(domain.ElementTable)},
		{"pdf_infer_table_structure", "true"},
		{"output_format", "application/json"},
	}

	var elements []domain.Element
	if err := p.client.post(ctx, pdfPath, "application/pdf", content, fields, &elements); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPartitioning, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no elements returned for %s", domain.ErrPartitioning, pdfPath)
	}
	return elements, nil
}
