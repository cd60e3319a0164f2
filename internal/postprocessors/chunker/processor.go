// Package chunker provides a by-title chunking processor.
//
// Elements are packed into chunks in reading order. A Title starts a new
// chunk once the current one holds body text, and a Table is always a
// chunk of its own. Text longer than the size limit is split with overlap,
// and a split never falls inside a tag marker.
package chunker

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.ChunkProcessor = (*Processor)(nil)

// DefaultMaxCharacters is the default hard chunk size limit.
const DefaultMaxCharacters = 3000

// DefaultOverlap is the default number of characters repeated between
// pieces of a split element.
const DefaultOverlap = 150

// Record types emitted by the chunker.
const (
	TypeComposite = "CompositeElement"
	TypeTable     = "Table"
)

const separator = "\n\n"

// Processor groups elements into chunk records by title.
// It implements the ChunkProcessor interface.
type Processor struct {
	maxCharacters int
	overlap       int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxCharacters sets the chunk size limit in bytes of text.
func WithMaxCharacters(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxCharacters = n
		}
	}
}

// WithOverlap sets the overlap between split pieces.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxCharacters: DefaultMaxCharacters,
		overlap:       DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.maxCharacters {
		p.overlap = p.maxCharacters / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// origElement is the compact reference to a source element kept in
// metadata.orig_elements.
type origElement struct {
	ElementID  string `json:"element_id"`
	Type       string `json:"type"`
	PageNumber int    `json:"page_number,omitempty"`
}

// section accumulates elements for one chunk.
type section struct {
	texts    []string
	elements []domain.Element
	size     int
	hasBody  bool
}

func (s *section) add(e domain.Element, text string) {
	if len(s.texts) > 0 {
		s.size += len(separator)
	}
	s.texts = append(s.texts, text)
	s.elements = append(s.elements, e)
	s.size += len(text)
	if e.Type != domain.ElementTitle {
		s.hasBody = true
	}
}

func (s *section) empty() bool {
	return len(s.texts) == 0
}

// Process chunks the elements. Input records are ignored; this processor
// creates the records.
func (p *Processor) Process(ctx context.Context, elements []domain.Element, _ []domain.ChunkRecord) ([]domain.ChunkRecord, error) {
	var records []domain.ChunkRecord
	var cur section

	flush := func() {
		if cur.empty() {
			return
		}
		records = append(records, newRecord(TypeComposite, strings.Join(cur.texts, separator), cur.elements))
		cur = section{}
	}

	for _, e := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}

		if e.Type == domain.ElementTable {
			flush()
			for _, piece := range Split(text, p.maxCharacters, p.overlap) {
				records = append(records, newRecord(TypeTable, piece, []domain.Element{e}))
			}
			continue
		}

		if e.Type == domain.ElementTitle && cur.hasBody {
			flush()
		}

		if len(text) > p.maxCharacters {
			flush()
			for _, piece := range Split(text, p.maxCharacters, p.overlap) {
				records = append(records, newRecord(TypeComposite, piece, []domain.Element{e}))
			}
			continue
		}

		if !cur.empty() && cur.size+len(separator)+len(text) > p.maxCharacters {
			flush()
		}
		cur.add(e, text)
	}
	flush()

	return records, nil
}

func newRecord(kind, text string, elements []domain.Element) domain.ChunkRecord {
	first := elements[0]
	refs := make([]origElement, 0, len(elements))
	for _, e := range elements {
		refs = append(refs, origElement{ElementID: e.ElementID, Type: e.Type.String(), PageNumber: e.Metadata.PageNumber})
	}
	orig, _ := json.Marshal(refs) //nolint:errcheck // plain structs always marshal

	return domain.ChunkRecord{
		Type:      kind,
		ElementID: uuid.New().String(),
		Text:      text,
		Metadata: domain.ChunkRecordMetadata{
			Filetype:     first.Metadata.Filetype,
			Languages:    first.Metadata.Languages,
			PageNumber:   first.Metadata.PageNumber,
			OrigElements: orig,
		},
	}
}

// Split cuts text into pieces of at most maxLen bytes, each starting
// overlap bytes before the previous piece ended. Cuts prefer whitespace in
// the second half of a piece, never split a UTF-8 sequence and never fall
// inside a tag marker.
func Split(text string, maxLen, overlap int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = 0
	}

	markers := domain.FindMarkers(text)
	insideMarker := func(pos int) (domain.Marker, bool) {
		for _, m := range markers {
			if m.Start < pos && pos < m.End {
				return m, true
			}
		}
		return domain.Marker{}, false
	}

	var pieces []string
	start := 0
	for start < len(text) {
		end := start + maxLen
		if end >= len(text) {
			pieces = appendPiece(pieces, text[start:])
			break
		}

		if m, ok := insideMarker(end); ok {
			end = m.Start
		}
		if i := strings.LastIndexAny(text[start:end], " \t\n"); i > (end-start)/2 {
			end = start + i
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end <= start {
			// A marker longer than maxLen at the cut point; take it whole.
			if m, ok := insideMarker(start + 1); ok && m.Start == start {
				end = m.End
			} else {
				end = start + maxLen
			}
		}
		pieces = appendPiece(pieces, text[start:end])

		next := end - overlap
		if m, ok := insideMarker(next); ok {
			next = m.Start
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return pieces
}

func appendPiece(pieces []string, piece string) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return pieces
	}
	return append(pieces, piece)
}
