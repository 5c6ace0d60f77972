package engine

import (
	"github.com/noazark/bom-pack/internal/geom"
	"github.com/noazark/bom-pack/internal/model"
)

// occupant is one placed outline tracked by the occupancy index.
type occupant struct {
	outline model.Outline
	bbox    model.Rect
}

// occupancy indexes the placed outlines of a single sheet so candidate
// positions can be rejected by bounding box before paying for exact
// polygon tests. It is owned by one Nest call and never shared.
type occupancy struct {
	placed  []occupant
	spacing float64 // clearance added around every bounding box
}

func newOccupancy(spacing float64) *occupancy {
	return &occupancy{spacing: spacing}
}

// add registers a placed outline with the index.
func (o *occupancy) add(outline model.Outline) {
	o.placed = append(o.placed, occupant{
		outline: outline,
		bbox:    outline.BoundingBox(),
	})
}

// candidates returns the placed outlines whose spacing-expanded bounding
// box intersects bb. Callers still run the exact overlap test on each;
// this only prunes the sheet history.
func (o *occupancy) candidates(bb model.Rect) []occupant {
	var hits []occupant
	for _, p := range o.placed {
		if p.bbox.Expand(o.spacing).Intersects(bb) {
			hits = append(hits, p)
		}
	}
	return hits
}

// conflicts reports whether an outline with bounding box bb can coexist
// with everything already placed. With zero spacing this is the exact
// positive-area polygon test; with spacing the expanded bounding boxes
// must already be disjoint, which enforces the clearance conservatively
// at the bounding-box level. Concave outlines therefore cannot interlock
// once a clearance is set: positions inside another part's bounding box
// are rejected without the polygon test, and utilization drops compared
// to a zero-spacing run.
func (o *occupancy) conflicts(outline model.Outline, bb model.Rect) bool {
	for _, c := range o.candidates(bb) {
		if o.spacing > 0 {
			return true // expanded boxes intersect, clearance violated
		}
		if geom.Overlaps(outline, c.outline) {
			return true
		}
	}
	return false
}
