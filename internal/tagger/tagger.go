// Package tagger implements the rule-based semantic tagger used for
// title elements.
//
// Tagging runs in two passes over the original text. Phrase rules claim
// multi-word spans first; single-word rules then fill in around them.
// Accepted spans never overlap, so the result is always well-formed and
// stripping the markers gives back the input exactly. That holds only for
// input without vocabulary markers of its own: domain.StripTags removes a
// literal "<ID>" in the input just like one the tagger inserted.
package tagger

import (
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// Span is an accepted tag over text[Start:End]. Kinds lists the wrappers
// from outermost to innermost.
type Span struct {
	Start int
	End   int
	Text  string
	Kinds []domain.TagKind
}

func (s Span) overlaps(start, end int) bool {
	return start < s.End && s.Start < end
}

type rule struct {
	kind    domain.TagKind
	pattern *regexp.Regexp
	company bool
}

// abbreviatedSuffixes are corporate suffixes that keep their trailing
// period inside a company span.
var abbreviatedSuffixes = []string{"Inc", "Ltd", "Corp", "Co"}

// roleWindow is how far either side of a company match a role keyword may
// sit for the match to be treated as a contract party.
const roleWindow = 10

var (
	phraseRules = []rule{
		{
			kind:    domain.TagParty,
			pattern: regexp.MustCompile(`(?i)\b(?:SAMPLE|TEST)\s+(?:LICENSOR|LICENSEE|VENDOR|CUSTOMER|SUPPLIER|CONTRACTOR|PARTNER|BUYER|SELLER|PARTY)\b`),
		},
		{
			kind:    domain.TagLegal,
			pattern: regexp.MustCompile(`(?i)\b(?:license|service|maintenance|support|software|subscription)\s+(?:agreement|contract)s?\b`),
		},
		{
			kind:    domain.TagCompany,
			pattern: regexp.MustCompile(`\b[A-Z][A-Za-z]*(?:[ \t]+[A-Z][A-Za-z]*)+`),
			company: true,
		},
	}

	wordRules = []rule{
		{
			kind:    domain.TagLegal,
			pattern: regexp.MustCompile(`(?i)\b(?:agreement|contract|license|amendment|addendum|deed|memorandum|terms|conditions)\b`),
		},
		{
			kind:    domain.TagParty,
			pattern: regexp.MustCompile(`(?i)\b(?:licensor|licensee|vendor|customer|supplier|contractor|partner|buyer|seller|party|parties)\b`),
		},
		{
			kind:    domain.TagProduct,
			pattern: regexp.MustCompile(`(?i)\b(?:service|product|software|platform|system|solution|equipment|goods)\b`),
		},
		{
			kind:    domain.TagStatus,
			pattern: regexp.MustCompile(`(?i)\b(?:draft|final|revised|amended|executed|confidential|private)\b`),
		},
		{
			kind:    domain.TagDate,
			pattern: regexp.MustCompile(`(?i)` + numericDate + `\s*[-–]\s*` + numericDate + `|` + numericDate + `|` + monthDate),
		},
		{
			kind:    domain.TagID,
			pattern: regexp.MustCompile(`\b[A-Z0-9]+-[A-Z0-9]+(?:-[A-Z0-9]+)*\b|\b[vV]\d+(?:\.\d+)*\b|#\d+\b`),
		},
		{
			kind:    domain.TagTerritory,
			pattern: regexp.MustCompile(`(?i)\b(?:worldwide|global|international|national|regional|domestic)\b`),
		},
	}

	roleKeyword = regexp.MustCompile(`(?i)\b(?:licensor|licensee|vendor|customer)\b`)
	upperLetter = regexp.MustCompile(`[A-Z]`)
)

const (
	numericDate = `\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`
	monthDate   = `\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s+\d{1,2},\s+\d{4}\b`
)

// Tagger tags text with the fixed rule set. The zero value is ready to use.
type Tagger struct{}

// New returns a Tagger.
func New() *Tagger {
	return &Tagger{}
}

// Tag returns text with tag markers spliced around every accepted span.
// Text with no matches is returned unchanged.
func (t *Tagger) Tag(text string) string {
	return Render(text, t.Spans(text))
}

// Spans returns the accepted spans ordered by start offset.
func (t *Tagger) Spans(text string) []Span {
	var accepted []Span

	for _, r := range phraseRules {
		matches := r.pattern.FindAllStringIndex(text, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			start, end := matches[i][0], matches[i][1]
			if r.company {
				end = suffixPeriodEnd(text, start, end)
			}
			if overlapsAny(accepted, start, end) {
				continue
			}
			matched := text[start:end]
			kinds := []domain.TagKind{r.kind}
			if r.company {
				if !upperLetter.MatchString(matched) {
					continue
				}
				if nearRoleKeyword(text, start, end) {
					kinds = []domain.TagKind{domain.TagCompany, domain.TagParty}
				}
			}
			accepted = append(accepted, Span{Start: start, End: end, Text: matched, Kinds: kinds})
		}
	}

	for _, r := range wordRules {
		matches := r.pattern.FindAllStringIndex(text, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			start, end := matches[i][0], matches[i][1]
			matched := text[start:end]
			if alreadyTagged(accepted, matched) || overlapsAny(accepted, start, end) {
				continue
			}
			accepted = append(accepted, Span{Start: start, End: end, Text: matched, Kinds: []domain.TagKind{r.kind}})
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// Render splices markers for non-overlapping spans into text.
func Render(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(spans)*24)
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.Start])
		for _, k := range s.Kinds {
			b.WriteString(k.Open())
		}
		b.WriteString(text[s.Start:s.End])
		for i := len(s.Kinds) - 1; i >= 0; i-- {
			b.WriteString(s.Kinds[i].Close())
		}
		prev = s.End
	}
	b.WriteString(text[prev:])
	return b.String()
}

// suffixPeriodEnd extends a company match over the period that follows an
// abbreviated suffix such as "Corp".
func suffixPeriodEnd(text string, start, end int) int {
	if end >= len(text) || text[end] != '.' {
		return end
	}
	run := text[start:end]
	last := run[strings.LastIndexAny(run, " \t")+1:]
	for _, suffix := range abbreviatedSuffixes {
		if last == suffix {
			return end + 1
		}
	}
	return end
}

func overlapsAny(spans []Span, start, end int) bool {
	for _, s := range spans {
		if s.overlaps(start, end) {
			return true
		}
	}
	return false
}

// alreadyTagged is deliberately coarse: a word is skipped when the same
// substring occurs inside any accepted span, wherever that span is.
func alreadyTagged(spans []Span, word string) bool {
	for _, s := range spans {
		if strings.Contains(s.Text, word) {
			return true
		}
	}
	return false
}

func nearRoleKeyword(text string, start, end int) bool {
	lo := start - roleWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + roleWindow
	if hi > len(text) {
		hi = len(text)
	}
	return roleKeyword.MatchString(text[lo:hi])
}

var defaultTagger = New()

// Tag tags text with the default tagger.
func Tag(text string) string {
	return defaultTagger.Tag(text)
}
