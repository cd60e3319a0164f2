// Package tagbalance repairs tag markers cut apart by chunking.
//
// A tagged span that straddles a chunk boundary leaves an unclosed opener
// at the end of one chunk and an orphan closer at the start of the next.
// The processor closes and reopens such spans so every chunk is well formed
// on its own. Only markers are added, so stripping tags still yields the
// original chunk text.
package tagbalance

import (
	"context"
	"strings"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.ChunkProcessor = (*Processor)(nil)

// Processor balances the tag markers of each chunk record.
type Processor struct{}

// New creates a tag balancing processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tag_balance"
}

// Process balances every record in place.
func (p *Processor) Process(_ context.Context, _ []domain.Element, records []domain.ChunkRecord) ([]domain.ChunkRecord, error) {
	for i := range records {
		records[i].Text = Balance(records[i].Text)
	}
	return records, nil
}

// Balance prepends openers for orphan closing markers and appends closers
// for unclosed opening markers. Mismatched interleavings are left alone.
func Balance(text string) string {
	var open []domain.TagKind
	var orphans []domain.TagKind

	for _, m := range domain.FindMarkers(text) {
		if !m.Closing {
			open = append(open, m.Kind)
			continue
		}
		if n := len(open); n > 0 {
			if open[n-1] == m.Kind {
				open = open[:n-1]
			}
			continue
		}
		orphans = append(orphans, m.Kind)
	}

	if len(open) == 0 && len(orphans) == 0 {
		return text
	}

	var b strings.Builder
	for i := len(orphans) - 1; i >= 0; i-- {
		b.WriteString(orphans[i].Open())
	}
	b.WriteString(text)
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString(open[i].Close())
	}
	return b.String()
}
