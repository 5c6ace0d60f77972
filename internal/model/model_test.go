package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(size float64) Outline {
	return Outline{
		{X: 0, Y: 0},
		{X: size, Y: 0},
		{X: size, Y: size},
		{X: 0, Y: size},
	}
}

func TestRectBasics(t *testing.T) {
	r := Rect{MinX: 10, MinY: 20, MaxX: 40, MaxY: 50}
	assert.Equal(t, 30.0, r.Width())
	assert.Equal(t, 30.0, r.Height())
	assert.Equal(t, 900.0, r.Area())
}

func TestRectIntersects(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

	assert.True(t, a.Intersects(Rect{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15}))
	assert.False(t, a.Intersects(Rect{MinX: 20, MinY: 20, MaxX: 30, MaxY: 30}))

	// Sharing an edge is touching, not intersecting.
	assert.False(t, a.Intersects(Rect{MinX: 10, MinY: 0, MaxX: 20, MaxY: 10}))
	assert.False(t, a.Intersects(Rect{MinX: 0, MinY: 10, MaxX: 10, MaxY: 20}))
}

func TestRectExpand(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}.Expand(2)
	assert.Equal(t, Rect{MinX: -2, MinY: -2, MaxX: 12, MaxY: 12}, r)
}

func TestOutlineBoundingBox(t *testing.T) {
	o := Outline{{X: 3, Y: 7}, {X: -1, Y: 2}, {X: 5, Y: 4}}
	bb := o.BoundingBox()
	assert.Equal(t, Rect{MinX: -1, MinY: 2, MaxX: 5, MaxY: 7}, bb)

	assert.Equal(t, Rect{}, Outline{}.BoundingBox())
}

func TestOutlineTranslate(t *testing.T) {
	o := square(10).Translate(5, -3)
	assert.Equal(t, Point2D{X: 5, Y: -3}, o[0])
	assert.Equal(t, Point2D{X: 15, Y: 7}, o[2])
}

func TestOutlineRotate(t *testing.T) {
	o := Outline{{X: 10, Y: 0}}.Rotate(90)
	assert.InDelta(t, 0, o[0].X, 1e-9)
	assert.InDelta(t, 10, o[0].Y, 1e-9)

	// Zero rotation is an identity copy, not an alias.
	orig := square(10)
	copied := orig.Rotate(0)
	copied[0].X = 99
	assert.Equal(t, 0.0, orig[0].X)
}

func TestOutlineArea(t *testing.T) {
	assert.InDelta(t, 100, square(10).Area(), 1e-9)

	// Clockwise winding gives negative signed area, same absolute area.
	cw := Outline{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}
	assert.Less(t, cw.SignedArea(), 0.0)
	assert.InDelta(t, 100, cw.Area(), 1e-9)

	tri := Outline{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	assert.InDelta(t, 50, tri.Area(), 1e-9)
}

func TestOutlinePerimeter(t *testing.T) {
	assert.InDelta(t, 40, square(10).Perimeter(), 1e-9)

	tri := Outline{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 0, Y: 4}}
	assert.InDelta(t, 12, tri.Perimeter(), 1e-9)
}

func TestOutlineCentroid(t *testing.T) {
	c := square(10).Centroid()
	assert.InDelta(t, 5, c.X, 1e-9)
	assert.InDelta(t, 5, c.Y, 1e-9)

	// Degenerate outline falls back to the vertex average.
	line := Outline{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}}
	c = line.Centroid()
	assert.InDelta(t, 10, c.X, 1e-9)
	assert.InDelta(t, 0, c.Y, 1e-9)
}

func TestOutlineNormalized(t *testing.T) {
	o := square(10).Translate(33, -7).Normalized()
	bb := o.BoundingBox()
	assert.InDelta(t, 0, bb.MinX, 1e-9)
	assert.InDelta(t, 0, bb.MinY, 1e-9)
	assert.InDelta(t, 10, bb.MaxX, 1e-9)
}

func TestNewShapeNormalizes(t *testing.T) {
	s := NewShape("plate", square(20).Translate(100, 50), nil)

	require.NotEmpty(t, s.ID)
	assert.Equal(t, "plate", s.Name)
	assert.InDelta(t, 0, s.BBox.MinX, 1e-9)
	assert.InDelta(t, 0, s.BBox.MinY, 1e-9)
	assert.InDelta(t, 20, s.Width(), 1e-9)
	assert.InDelta(t, 20, s.Height(), 1e-9)
	assert.InDelta(t, 400, s.Area, 1e-9)
}

func TestNewShapeRewindsClockwise(t *testing.T) {
	cw := Outline{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}
	s := NewShape("plate", cw, nil)
	assert.Greater(t, s.Outline.SignedArea(), 0.0)
}

func TestNewShapeShiftsDetails(t *testing.T) {
	boundary := square(20).Translate(100, 100)
	hole := square(4).Translate(108, 108)

	s := NewShape("plate", boundary, []Outline{hole})
	require.Len(t, s.Details, 1)

	// The hole keeps its position relative to the boundary.
	hb := s.Details[0].BoundingBox()
	assert.InDelta(t, 8, hb.MinX, 1e-9)
	assert.InDelta(t, 8, hb.MinY, 1e-9)
}

func TestNewInstanceDefaultRotation(t *testing.T) {
	s := NewShape("plate", square(10), nil)

	inst := NewInstance(s, nil)
	assert.Equal(t, []float64{0}, inst.Rotations)
	assert.Equal(t, s.ID, inst.ShapeID)

	inst = NewInstance(s, []float64{0, 90})
	assert.Equal(t, []float64{0, 90}, inst.Rotations)
}

func TestPlacementTransform(t *testing.T) {
	s := NewShape("bar", Outline{
		{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 10}, {X: 0, Y: 10},
	}, nil)

	p := Placement{Shape: s, X: 50, Y: 20, Rotation: 90}
	out := p.Transform(s.Outline)
	bb := out.BoundingBox()

	// After a 90 degree turn the 30x10 bar stands 10x30 at the anchor.
	assert.InDelta(t, 50, bb.MinX, 1e-9)
	assert.InDelta(t, 20, bb.MinY, 1e-9)
	assert.InDelta(t, 10, bb.Width(), 1e-9)
	assert.InDelta(t, 30, bb.Height(), 1e-9)
}

func TestPlacementTransformNoRotation(t *testing.T) {
	s := NewShape("plate", square(10), nil)
	p := Placement{Shape: s, X: 5, Y: 7}
	out := p.Transform(s.Outline)
	assert.Equal(t, Point2D{X: 5, Y: 7}, out[0])
}

func TestSheetLayoutUtilization(t *testing.T) {
	s := NewShape("plate", square(10), nil)
	sheet := SheetLayout{Width: 100, Height: 100}
	assert.Equal(t, 0.0, sheet.Utilization())

	sheet.Placements = append(sheet.Placements,
		Placement{Shape: s}, Placement{Shape: s})
	assert.InDelta(t, 0.02, sheet.Utilization(), 1e-9)

	empty := SheetLayout{}
	assert.Equal(t, 0.0, empty.Utilization())
}

func TestLayoutResultTotals(t *testing.T) {
	s := NewShape("plate", square(10), nil)
	result := LayoutResult{
		Sheets: []SheetLayout{
			{Width: 100, Height: 100, Placements: []Placement{{Shape: s}}},
			{Width: 100, Height: 100, Placements: []Placement{{Shape: s}, {Shape: s}}},
		},
	}
	assert.Equal(t, 3, result.PlacedCount())
	assert.InDelta(t, 300.0/20000.0, result.TotalUtilization(), 1e-9)

	assert.Equal(t, 0.0, LayoutResult{}.TotalUtilization())
}

func TestRotatePreservesArea(t *testing.T) {
	o := Outline{{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 10}, {X: 15, Y: 25}, {X: 0, Y: 10}}
	for _, angle := range []float64{30, 45, 90, 137, 270} {
		rotated := o.Rotate(angle)
		if math.Abs(rotated.Area()-o.Area()) > 1e-6 {
			t.Errorf("rotation by %g changed area: %g -> %g", angle, o.Area(), rotated.Area())
		}
	}
}
