package domain

import (
	"regexp"
	"strings"
)

// TagKind is a member of the fixed semantic tag vocabulary.
type TagKind string

// The tag vocabulary. Markup is <KIND>text</KIND>.
const (
	TagCompany   TagKind = "COMPANY"
	TagParty     TagKind = "PARTY"
	TagDate      TagKind = "DATE"
	TagAddress   TagKind = "ADDRESS"
	TagContact   TagKind = "CONTACT"
	TagRights    TagKind = "RIGHTS"
	TagTerritory TagKind = "TERRITORY"
	TagTerm      TagKind = "TERM"
	TagPayment   TagKind = "PAYMENT"
	TagLegal     TagKind = "LEGAL"
	TagProduct   TagKind = "PRODUCT"
	TagID        TagKind = "ID"
	TagStatus    TagKind = "STATUS"
)

// AllTagKinds returns the vocabulary in canonical order.
func AllTagKinds() []TagKind {
	return []TagKind{
		TagCompany, TagParty, TagDate, TagAddress, TagContact, TagRights,
		TagTerritory, TagTerm, TagPayment, TagLegal, TagProduct, TagID, TagStatus,
	}
}

// IsValid returns true if the kind is part of the vocabulary.
func (k TagKind) IsValid() bool {
	for _, v := range AllTagKinds() {
		if v == k {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (k TagKind) String() string {
	return string(k)
}

// Open returns the opening marker, e.g. <DATE>.
func (k TagKind) Open() string {
	return "<" + string(k) + ">"
}

// Close returns the closing marker, e.g. </DATE>.
func (k TagKind) Close() string {
	return "</" + string(k) + ">"
}

// Wrap surrounds text with the kind's markers.
func (k TagKind) Wrap(text string) string {
	return k.Open() + text + k.Close()
}

var tagMarkerPattern = func() *regexp.Regexp {
	kinds := make([]string, 0, len(AllTagKinds()))
	for _, k := range AllTagKinds() {
		kinds = append(kinds, string(k))
	}
	return regexp.MustCompile(`</?(` + strings.Join(kinds, "|") + `)>`)
}()

// StripTags removes every vocabulary marker and nothing else.
func StripTags(s string) string {
	return tagMarkerPattern.ReplaceAllString(s, "")
}

// TagsPreserveText reports whether tagged is untagged plus markers only,
// comparing with surrounding whitespace trimmed.
func TagsPreserveText(untagged, tagged string) bool {
	return strings.TrimSpace(StripTags(tagged)) == strings.TrimSpace(untagged)
}

// Marker is one vocabulary marker located in a string.
type Marker struct {
	Kind    TagKind
	Closing bool
	Start   int
	End     int
}

// FindMarkers returns the vocabulary markers of s in order of position.
func FindMarkers(s string) []Marker {
	locs := tagMarkerPattern.FindAllStringSubmatchIndex(s, -1)
	markers := make([]Marker, 0, len(locs))
	for _, loc := range locs {
		markers = append(markers, Marker{
			Kind:    TagKind(s[loc[2]:loc[3]]),
			Closing: s[loc[0]+1] == '/',
			Start:   loc[0],
			End:     loc[1],
		})
	}
	return markers
}
