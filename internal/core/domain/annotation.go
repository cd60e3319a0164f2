package domain

// annotationColors maps element types to their box colour on annotated pages.
var annotationColors = map[ElementType]string{
	ElementTitle:         "orchid",
	ElementImage:         "forestgreen",
	ElementTable:         "tomato",
	ElementListItem:      "gold",
	ElementNarrativeText: "deepskyblue",
}

// DefaultAnnotationColor is used for element types without a legend entry.
const DefaultAnnotationColor = "deepskyblue"

// AnnotationColor returns the box colour for an element type.
func AnnotationColor(t ElementType) string {
	if c, ok := annotationColors[t]; ok {
		return c
	}
	return DefaultAnnotationColor
}

// AnnotationLegend returns the type to colour legend.
func AnnotationLegend() map[string]string {
	legend := make(map[string]string, len(annotationColors))
	for t, c := range annotationColors {
		legend[string(t)] = c
	}
	return legend
}

// AnnotationBox is one element outline on a page, in page points.
type AnnotationBox struct {
	ElementID string       `json:"element_id"`
	Type      ElementType  `json:"type"`
	Color     string       `json:"color"`
	Polygon   [][2]float64 `json:"polygon"`
}

// PageManifest is the layout annotation of one PDF page.
type PageManifest struct {
	PDF    string            `json:"pdf"`
	Page   int               `json:"page"`
	Width  float64           `json:"width"`
	Height float64           `json:"height"`
	Legend map[string]string `json:"legend"`
	Boxes  []AnnotationBox   `json:"boxes"`
}

// ScaledPolygon maps the element's coordinate points onto a page of the
// given size. ok is false when the element has no usable coordinates.
func (e *Element) ScaledPolygon(width, height float64) (polygon [][2]float64, ok bool) {
	c := e.Metadata.Coordinates
	if c == nil || len(c.Points) == 0 || c.LayoutWidth <= 0 || c.LayoutHeight <= 0 {
		return nil, false
	}
	polygon = make([][2]float64, len(c.Points))
	for i, p := range c.Points {
		polygon[i] = [2]float64{p[0] * width / c.LayoutWidth, p[1] * height / c.LayoutHeight}
	}
	return polygon, true
}
