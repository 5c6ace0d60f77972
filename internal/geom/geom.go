// Package geom implements the polygon predicates the nesting engine
// relies on: exact overlap tests for arbitrary (non-convex) outlines,
// containment in a sheet rectangle, and validity checks applied at
// import time. All comparisons share model.Epsilon so a placement never
// flips between "touching" and "overlapping" across predicates.
package geom

import (
	"fmt"
	"math"

	"github.com/noazark/bom-pack/internal/model"
)

// probeInset is how far interior probe points are pushed inside an
// outline when testing for coincident overlap. Well above Epsilon, well
// below any feature a laser could cut.
const probeInset = 1e-4

// GeometryError reports a degenerate or malformed polygon. Import
// validation raises it; the placement engine treats one escaping into a
// run as an invariant violation.
type GeometryError struct {
	Shape  string
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Shape == "" {
		return fmt.Sprintf("invalid geometry: %s", e.Reason)
	}
	return fmt.Sprintf("invalid geometry in %q: %s", e.Shape, e.Reason)
}

// cross returns the z component of (b-a) x (c-a). Positive when c lies
// left of the directed line a->b.
func cross(a, b, c model.Point2D) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// onSegment reports whether p lies on the segment a-b, within Epsilon.
func onSegment(p, a, b model.Point2D) bool {
	if math.Abs(cross(a, b, p)) > model.Epsilon*math.Max(1, segLen(a, b)) {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-model.Epsilon && p.X <= math.Max(a.X, b.X)+model.Epsilon &&
		p.Y >= math.Min(a.Y, b.Y)-model.Epsilon && p.Y <= math.Max(a.Y, b.Y)+model.Epsilon
}

func segLen(a, b model.Point2D) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// SegmentsCross reports whether segments a1-a2 and b1-b2 intersect at a
// point interior to both. Endpoint touches and collinear overlaps do not
// count: those are "touching", which placement allows.
func SegmentsCross(a1, a2, b1, b2 model.Point2D) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)

	// Scale the tolerance with segment length so short and long edges
	// agree on what "on the line" means.
	ta := model.Epsilon * math.Max(1, segLen(b1, b2))
	tb := model.Epsilon * math.Max(1, segLen(a1, a2))

	return ((d1 > ta && d2 < -ta) || (d1 < -ta && d2 > ta)) &&
		((d3 > tb && d4 < -tb) || (d3 < -tb && d4 > tb))
}

// segmentsTouch reports whether the segments intersect at all, including
// endpoint contact and collinear overlap. Used for self-intersection
// validation, where any contact between non-adjacent edges is malformed.
func segmentsTouch(a1, a2, b1, b2 model.Point2D) bool {
	if SegmentsCross(a1, a2, b1, b2) {
		return true
	}
	return onSegment(b1, a1, a2) || onSegment(b2, a1, a2) ||
		onSegment(a1, b1, b2) || onSegment(a2, b1, b2)
}

// PointInPolygon reports whether p lies strictly inside the outline.
// Points on the boundary (within Epsilon) are outside.
func PointInPolygon(p model.Point2D, o model.Outline) bool {
	n := len(o)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if onSegment(p, o[i], o[(i+1)%n]) {
			return false
		}
	}
	// Ray casting toward +X.
	inside := false
	for i := 0; i < n; i++ {
		a, b := o[i], o[(i+1)%n]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// interiorProbes returns points nudged just inside the outline, one per
// edge midpoint. The outline must be counter-clockwise, which NewShape
// guarantees; the inward normal of a CCW edge is its left normal.
func interiorProbes(o model.Outline) []model.Point2D {
	n := len(o)
	probes := make([]model.Point2D, 0, n)
	for i := 0; i < n; i++ {
		a, b := o[i], o[(i+1)%n]
		l := segLen(a, b)
		if l < model.Epsilon {
			continue
		}
		mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
		nx, ny := -(b.Y-a.Y)/l, (b.X-a.X)/l
		p := model.Point2D{X: mx + nx*probeInset, Y: my + ny*probeInset}
		if PointInPolygon(p, o) {
			probes = append(probes, p)
		}
	}
	return probes
}

// Overlaps reports whether two outlines share positive area. Outlines
// that only touch along edges or at vertices do not overlap. Both
// outlines must be simple polygons; non-convex inputs are handled.
func Overlaps(a, b model.Outline) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	if !a.BoundingBox().Intersects(b.BoundingBox()) {
		return false
	}

	// Any pair of properly crossing edges means shared area.
	na, nb := len(a), len(b)
	for i := 0; i < na; i++ {
		a1, a2 := a[i], a[(i+1)%na]
		for j := 0; j < nb; j++ {
			if SegmentsCross(a1, a2, b[j], b[(j+1)%nb]) {
				return true
			}
		}
	}

	// No crossings: one may be nested inside the other, or they may
	// coincide edge-for-edge. A vertex strictly inside settles nesting.
	for _, p := range a {
		if PointInPolygon(p, b) {
			return true
		}
	}
	for _, p := range b {
		if PointInPolygon(p, a) {
			return true
		}
	}

	// All vertices on or outside the other boundary. Probe points just
	// inside each outline catch the coincident and shared-boundary cases
	// that vertex tests miss.
	for _, p := range interiorProbes(a) {
		if PointInPolygon(p, b) {
			return true
		}
	}
	for _, p := range interiorProbes(b) {
		if PointInPolygon(p, a) {
			return true
		}
	}
	return false
}

// ContainedIn reports whether the outline lies entirely within the
// rectangle. The rectangle is convex, so vertex containment implies edge
// containment. Touching the boundary is allowed.
func ContainedIn(o model.Outline, r model.Rect) bool {
	if len(o) < 3 {
		return false
	}
	for _, p := range o {
		if !r.ContainsPoint(p) {
			return false
		}
	}
	return true
}

// Validate rejects outlines the kernel cannot pack: fewer than three
// points, zero area, repeated closing point, or self-intersection.
// name is used in the error for reporting.
func Validate(name string, o model.Outline) error {
	n := len(o)
	if n < 3 {
		return &GeometryError{Shape: name, Reason: fmt.Sprintf("needs at least 3 points, has %d", n)}
	}
	if segLen(o[0], o[n-1]) < model.Epsilon {
		return &GeometryError{Shape: name, Reason: "first and last point coincide; outlines close implicitly"}
	}
	if o.Area() < model.Epsilon {
		return &GeometryError{Shape: name, Reason: "zero area"}
	}
	for i := 0; i < n; i++ {
		a1, a2 := o[i], o[(i+1)%n]
		if segLen(a1, a2) < model.Epsilon {
			return &GeometryError{Shape: name, Reason: fmt.Sprintf("degenerate edge at point %d", i)}
		}
		for j := i + 1; j < n; j++ {
			// Skip edges sharing a vertex with edge i, including the
			// last-first wraparound pair.
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			if segmentsTouch(a1, a2, o[j], o[(j+1)%n]) {
				return &GeometryError{Shape: name, Reason: fmt.Sprintf("self-intersection between edges %d and %d", i, j)}
			}
		}
	}
	return nil
}
