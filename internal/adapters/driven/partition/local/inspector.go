package local

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Inspector implements the interface.
var _ driven.PageInspector = (*Inspector)(nil)

// US Letter, used when neither the page nor its ancestors carry a MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Inspector reads page media boxes.
type Inspector struct{}

// NewInspector creates a page inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Pages returns the size of every page in points.
func (i *Inspector) Pages(ctx context.Context, pdfPath string) ([]driven.PageSize, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrAnnotation, pdfPath, err)
	}
	defer f.Close()

	pages := make([]driven.PageSize, 0, r.NumPage())
	for n := 1; n <= r.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, h := mediaBox(r.Page(n).V)
		pages = append(pages, driven.PageSize{Number: n, Width: w, Height: h})
	}
	return pages, nil
}

// mediaBox returns the page size, walking up the page tree because
// MediaBox is inheritable.
func mediaBox(v pdf.Value) (float64, float64) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}
