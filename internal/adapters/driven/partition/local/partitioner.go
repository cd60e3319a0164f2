// Package local partitions PDFs in-process from their text layer.
//
// There is no layout model: pages are split into paragraphs, short
// heading-like lines become Title elements and everything else is
// NarrativeText. No images, tables or coordinates are produced, so the
// enricher only tags text and annotation manifests come out empty.
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Partitioner implements the interface.
var _ driven.Partitioner = (*Partitioner)(nil)

// maxTitleLength bounds lines considered as headings.
const maxTitleLength = 80

// Partitioner extracts page text with github.com/ledongthuc/pdf.
type Partitioner struct{}

// NewPartitioner creates a local partitioner.
func NewPartitioner() *Partitioner {
	return &Partitioner{}
}

// Name returns the partitioner name.
func (p *Partitioner) Name() string {
	return "local"
}

// Partition reads every page's plain text and converts it to elements.
func (p *Partitioner) Partition(ctx context.Context, pdfPath string) ([]domain.Element, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrPartitioning, pdfPath, err)
	}
	defer f.Close()

	filename := filepath.Base(pdfPath)
	var elements []domain.Element //nolint:prealloc // element count unknown until pages are read
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrPartitioning, i, err)
		}
		elements = append(elements, PageElements(filename, i, text)...)
	}

	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no text layer in %s", domain.ErrPartitioning, filename)
	}
	return elements, nil
}

// PageElements converts the plain text of one page into elements.
// Element IDs are derived from filename, page and position so repeated
// runs produce the same IDs.
func PageElements(filename string, page int, text string) []domain.Element {
	var elements []domain.Element
	for _, para := range paragraphs(text) {
		kind := domain.ElementNarrativeText
		if isTitle(para) {
			kind = domain.ElementTitle
		}
		seed := fmt.Sprintf("%s:%d:%d", filename, page, len(elements))
		elements = append(elements, domain.Element{
			Type:      kind,
			ElementID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String(),
			Text:      para,
			Metadata: domain.ElementMetadata{
				PageNumber: page,
				Filename:   filename,
				Filetype:   "application/pdf",
				Languages:  []string{"eng"},
			},
		})
	}
	return elements
}

// paragraphs groups lines into paragraphs. A blank line ends a paragraph
// and a heading-like line always stands alone.
func paragraphs(text string) []string {
	var out []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		switch {
		case line == "":
			flush()
		case isTitle(line):
			flush()
			out = append(out, line)
		default:
			current = append(current, line)
		}
	}
	flush()
	return out
}

// isTitle reports whether a line looks like a heading: short, no closing
// punctuation, and either upper case or title case.
func isTitle(line string) bool {
	if line == "" || len(line) > maxTitleLength {
		return false
	}
	if strings.ContainsAny(line[len(line)-1:], ".,;:") {
		return false
	}

	letters, upper := 0, 0
	words := strings.Fields(line)
	capitalised := 0
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			capitalised++
		}
	}
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 3 {
		return false
	}
	if upper == letters {
		return true
	}
	return len(words) <= 8 && capitalised == len(words)
}
