// Package model defines the shared data types for the nesting pipeline:
// shapes, placeable instances, placements, and layout results. All
// coordinates are millimeters.
package model

import (
	"math"

	"github.com/google/uuid"
)

// Epsilon is the sub-millimeter tolerance used by every geometric
// comparison in this module. Coordinates closer than this are treated
// as equal, which keeps "touching" from flapping into "overlapping".
const Epsilon = 1e-6

// Point2D represents a 2D coordinate in mm.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle given by its corner coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns the rectangle area.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Intersects reports whether the rectangles share interior area.
// Rectangles that only touch along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX-Epsilon && r.MaxX > o.MinX+Epsilon &&
		r.MinY < o.MaxY-Epsilon && r.MaxY > o.MinY+Epsilon
}

// Expand grows the rectangle by m on every side.
func (r Rect) Expand(m float64) Rect {
	return Rect{MinX: r.MinX - m, MinY: r.MinY - m, MaxX: r.MaxX + m, MaxY: r.MaxY + m}
}

// ContainsPoint reports whether p lies within the rectangle, with
// Epsilon slack on the boundary.
func (r Rect) ContainsPoint(p Point2D) bool {
	return p.X >= r.MinX-Epsilon && p.X <= r.MaxX+Epsilon &&
		p.Y >= r.MinY-Epsilon && p.Y <= r.MaxY+Epsilon
}

// Outline represents a closed polygon as a sequence of 2D points.
// The outline is implicitly closed: the last point connects back to the first.
type Outline []Point2D

// BoundingBox returns the axis-aligned bounding box of the outline.
func (o Outline) BoundingBox() Rect {
	if len(o) == 0 {
		return Rect{}
	}
	bb := Rect{MinX: o[0].X, MinY: o[0].Y, MaxX: o[0].X, MaxY: o[0].Y}
	for _, p := range o[1:] {
		if p.X < bb.MinX {
			bb.MinX = p.X
		}
		if p.Y < bb.MinY {
			bb.MinY = p.Y
		}
		if p.X > bb.MaxX {
			bb.MaxX = p.X
		}
		if p.Y > bb.MaxY {
			bb.MaxY = p.Y
		}
	}
	return bb
}

// Translate shifts all points by dx, dy.
func (o Outline) Translate(dx, dy float64) Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{X: p.X + dx, Y: p.Y + dy}
	}
	return result
}

// Rotate rotates the outline around the origin by the given angle in
// degrees, counter-clockwise.
func (o Outline) Rotate(degrees float64) Outline {
	if degrees == 0 {
		result := make(Outline, len(o))
		copy(result, o)
		return result
	}
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{
			X: p.X*cos - p.Y*sin,
			Y: p.X*sin + p.Y*cos,
		}
	}
	return result
}

// SignedArea computes the shoelace area of the outline. Positive for
// counter-clockwise winding, negative for clockwise.
func (o Outline) SignedArea() float64 {
	n := len(o)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += o[i].X * o[j].Y
		area -= o[j].X * o[i].Y
	}
	return area / 2
}

// Area returns the absolute polygon area.
func (o Outline) Area() float64 {
	return math.Abs(o.SignedArea())
}

// Perimeter returns the total edge length of the closed outline.
func (o Outline) Perimeter() float64 {
	n := len(o)
	if n < 2 {
		return 0
	}
	var total float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		dx := o[j].X - o[i].X
		dy := o[j].Y - o[i].Y
		total += math.Sqrt(dx*dx + dy*dy)
	}
	return total
}

// Centroid returns the area-weighted centroid of the outline. Falls back
// to the vertex average for degenerate (zero-area) outlines.
func (o Outline) Centroid() Point2D {
	n := len(o)
	if n == 0 {
		return Point2D{}
	}
	a := o.SignedArea()
	if math.Abs(a) < Epsilon {
		var sx, sy float64
		for _, p := range o {
			sx += p.X
			sy += p.Y
		}
		return Point2D{X: sx / float64(n), Y: sy / float64(n)}
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := o[i].X*o[j].Y - o[j].X*o[i].Y
		cx += (o[i].X + o[j].X) * cross
		cy += (o[i].Y + o[j].Y) * cross
	}
	return Point2D{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Normalized returns the outline translated so its bounding box starts
// at the origin.
func (o Outline) Normalized() Outline {
	if len(o) == 0 {
		return o
	}
	bb := o.BoundingBox()
	return o.Translate(-bb.MinX, -bb.MinY)
}

// Shape is a named, reusable outline shared by every instance cut from
// it. The boundary participates in packing; detail outlines (holes,
// engravings) are carried along for drawing only. Shapes are immutable
// once built.
type Shape struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Outline Outline   `json:"outline"`           // boundary polygon, normalized to origin, CCW
	Details []Outline `json:"details,omitempty"` // interior outlines in the same local frame

	// Precomputed from the boundary.
	BBox     Rect    `json:"-"`
	Area     float64 `json:"area"`
	Centroid Point2D `json:"centroid"`
}

// NewShape builds a Shape from a boundary outline. The boundary is
// normalized to the origin and rewound counter-clockwise; detail
// outlines are shifted by the same offset so they stay registered with
// the boundary. Geometric validity is the caller's concern (see the
// geom package).
func NewShape(name string, boundary Outline, details []Outline) *Shape {
	bb := boundary.BoundingBox()
	normalized := boundary.Translate(-bb.MinX, -bb.MinY)
	if normalized.SignedArea() < 0 {
		reversed := make(Outline, len(normalized))
		for i, p := range normalized {
			reversed[len(normalized)-1-i] = p
		}
		normalized = reversed
	}
	shifted := make([]Outline, len(details))
	for i, d := range details {
		shifted[i] = d.Translate(-bb.MinX, -bb.MinY)
	}
	return &Shape{
		ID:       uuid.New().String()[:8],
		Name:     name,
		Outline:  normalized,
		Details:  shifted,
		BBox:     normalized.BoundingBox(),
		Area:     normalized.Area(),
		Centroid: normalized.Centroid(),
	}
}

// Width returns the bounding-box width of the shape.
func (s *Shape) Width() float64 { return s.BBox.Width() }

// Height returns the bounding-box height of the shape.
func (s *Shape) Height() float64 { return s.BBox.Height() }

// Instance is one placeable unit of a shape. A BOM line with quantity N
// expands into N instances sharing the same *Shape. Each instance is
// consumed exactly once by the nester: placed, or reported unplaceable.
type Instance struct {
	ID        string    `json:"id"`
	Shape     *Shape    `json:"-"`
	ShapeID   string    `json:"shape_id"`
	Rotations []float64 `json:"rotations"` // allowed rotation angles in degrees, tried in order
}

// NewInstance creates an instance of the shape with the given allowed
// rotations.
func NewInstance(shape *Shape, rotations []float64) Instance {
	if len(rotations) == 0 {
		rotations = []float64{0}
	}
	return Instance{
		ID:        uuid.New().String()[:8],
		Shape:     shape,
		ShapeID:   shape.ID,
		Rotations: rotations,
	}
}

// Placement records where one instance landed: sheet-local position of
// its bounding box corner and the rotation applied.
type Placement struct {
	InstanceID string  `json:"instance_id"`
	Shape      *Shape  `json:"-"`
	ShapeName  string  `json:"shape"`
	X          float64 `json:"x"`        // bounding-box min corner from sheet left edge (mm)
	Y          float64 `json:"y"`        // bounding-box min corner from sheet bottom edge (mm)
	Rotation   float64 `json:"rotation"` // degrees, counter-clockwise
	Outline    Outline `json:"-"`        // boundary transformed into sheet coordinates
}

// Transform maps an outline from the shape's local frame onto the sheet
// using this placement's rotation and position.
func (p Placement) Transform(o Outline) Outline {
	rotated := o.Rotate(p.Rotation)
	rb := p.Shape.Outline.Rotate(p.Rotation).BoundingBox()
	return rotated.Translate(p.X-rb.MinX, p.Y-rb.MinY)
}

// SheetLayout is one stock sheet with its placed instances, in placement
// order.
type SheetLayout struct {
	Index      int         `json:"index"`
	Width      float64     `json:"width"`  // mm
	Height     float64     `json:"height"` // mm
	Placements []Placement `json:"placements"`
}

// Bounds returns the sheet rectangle with its origin at (0, 0).
func (s SheetLayout) Bounds() Rect {
	return Rect{MaxX: s.Width, MaxY: s.Height}
}

// UsedArea returns the total polygon area of placed parts.
func (s SheetLayout) UsedArea() float64 {
	var total float64
	for _, p := range s.Placements {
		total += p.Shape.Area
	}
	return total
}

// Utilization returns the fraction of the sheet covered by parts, 0..1.
func (s SheetLayout) Utilization() float64 {
	ta := s.Width * s.Height
	if ta == 0 {
		return 0
	}
	return s.UsedArea() / ta
}

// LayoutResult holds the full nesting solution: every input instance
// appears exactly once, either in a sheet's placements or in Unplaced.
type LayoutResult struct {
	Sheets   []SheetLayout `json:"sheets"`
	Unplaced []Instance    `json:"unplaced,omitempty"`
}

// PlacedCount returns the number of placed instances across all sheets.
func (r LayoutResult) PlacedCount() int {
	total := 0
	for _, s := range r.Sheets {
		total += len(s.Placements)
	}
	return total
}

// TotalUtilization returns overall material usage across all sheets, 0..1.
func (r LayoutResult) TotalUtilization() float64 {
	var used, total float64
	for _, s := range r.Sheets {
		used += s.UsedArea()
		total += s.Width * s.Height
	}
	if total == 0 {
		return 0
	}
	return used / total
}
