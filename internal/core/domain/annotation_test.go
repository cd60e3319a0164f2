package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnotationColor(t *testing.T) {
	assert.Equal(t, "orchid", AnnotationColor(ElementTitle))
	assert.Equal(t, "tomato", AnnotationColor(ElementTable))
	assert.Equal(t, DefaultAnnotationColor, AnnotationColor("Footer"))
	assert.Len(t, AnnotationLegend(), 5)
}

func TestElement_ScaledPolygon(t *testing.T) {
	e := Element{Metadata: ElementMetadata{Coordinates: &Coordinates{
		Points:       [][2]float64{{100, 200}, {100, 400}, {850, 400}, {850, 200}},
		LayoutWidth:  1700,
		LayoutHeight: 2200,
	}}}

	poly, ok := e.ScaledPolygon(612, 792)
	assert.True(t, ok)
	assert.InDelta(t, 36.0, poly[0][0], 1e-9)
	assert.InDelta(t, 72.0, poly[0][1], 1e-9)
	assert.InDelta(t, 306.0, poly[2][0], 1e-9)

	_, ok = (&Element{}).ScaledPolygon(612, 792)
	assert.False(t, ok)

	e.Metadata.Coordinates.LayoutWidth = 0
	_, ok = e.ScaledPolygon(612, 792)
	assert.False(t, ok)
}
