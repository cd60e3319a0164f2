package domain

import (
	"encoding/json"
	"fmt"
)

// ElementType is the layout category assigned by the partitioner.
type ElementType string

// Element types the pipeline acts on. Other partitioner categories
// (Header, Footer, UncategorizedText, ...) are carried through untouched.
const (
	ElementTitle         ElementType = "Title"
	ElementNarrativeText ElementType = "NarrativeText"
	ElementImage         ElementType = "Image"
	ElementTable         ElementType = "Table"
	ElementListItem      ElementType = "ListItem"
)

// String returns the string representation.
func (t ElementType) String() string {
	return string(t)
}

// Coordinates locates an element on its page in the partitioner's
// coordinate system.
type Coordinates struct {
	Points       [][2]float64 `json:"points"`
	System       string       `json:"system,omitempty"`
	LayoutWidth  float64      `json:"layout_width,omitempty"`
	LayoutHeight float64      `json:"layout_height,omitempty"`
}

// ElementMetadata carries the partitioner metadata the pipeline reads.
// Keys the pipeline does not know are kept in Extra and written back
// unchanged.
type ElementMetadata struct {
	PageNumber    int          `json:"page_number,omitempty"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	ImageBase64   string       `json:"image_base64,omitempty"`
	ImageMimeType string       `json:"image_mime_type,omitempty"`
	TextAsHTML    string       `json:"text_as_html,omitempty"`
	Filename      string       `json:"filename,omitempty"`
	Filetype      string       `json:"filetype,omitempty"`
	Languages     []string     `json:"languages,omitempty"`

	// Enriched marks elements already handled by the enricher so a
	// restarted run does not repeat oracle calls.
	Enriched bool `json:"enriched,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownMetadataKeys = map[string]struct{}{
	"page_number":     {},
	"coordinates":     {},
	"image_base64":    {},
	"image_mime_type": {},
	"text_as_html":    {},
	"filename":        {},
	"filetype":        {},
	"languages":       {},
	"enriched":        {},
}

type elementMetadataAlias ElementMetadata

// UnmarshalJSON decodes known keys into fields and keeps the rest in Extra.
func (m *ElementMetadata) UnmarshalJSON(data []byte) error {
	var alias elementMetadataAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownMetadataKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}
	*m = ElementMetadata(alias)
	return nil
}

// MarshalJSON writes known fields and merges Extra back in.
func (m ElementMetadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(elementMetadataAlias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(m.Extra)+len(knownMetadataKeys))
	for k, v := range m.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, fmt.Errorf("re-reading metadata: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// HasImage reports whether the element carries an image payload.
func (m ElementMetadata) HasImage() bool {
	return m.ImageBase64 != ""
}

// Element is one layout element of a partitioned PDF.
type Element struct {
	Type      ElementType     `json:"type"`
	ElementID string          `json:"element_id"`
	Text      string          `json:"text"`
	Metadata  ElementMetadata `json:"metadata"`
}

// ImageMIME returns the payload mime type, defaulting to JPEG as the
// partitioner does for extracted blocks.
func (e *Element) ImageMIME() string {
	if e.Metadata.ImageMimeType != "" {
		return e.Metadata.ImageMimeType
	}
	return "image/jpeg"
}
