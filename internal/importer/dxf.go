package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/noazark/bom-pack/internal/catalog"
	"github.com/noazark/bom-pack/internal/geom"
	"github.com/noazark/bom-pack/internal/model"
)

// Arc and circle tessellation densities. Boundary fidelity matters more
// than point count for collision tests, so circles get the finer grain.
const (
	circleSegments = 64
	arcSegments    = 32
)

// chainTolerance is the maximum gap in mm between endpoints of LINE and
// ARC entities that still counts as connected when chaining them into
// closed outlines.
const chainTolerance = 0.01

// segment is a line segment between two points, used for chaining
// disconnected LINE and ARC entities into closed outlines.
type segment struct {
	start model.Point2D
	end   model.Point2D
}

// LoadShape reads a DXF drawing and builds a Shape from it. The largest
// closed outline becomes the part boundary; smaller outlines (holes,
// engravings) are kept as details and travel with the part into the
// output drawing. The boundary is validated before the shape is
// returned.
func LoadShape(name, path string) (*model.Shape, error) {
	drawing, err := dxf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open drawing %s: %w", path, err)
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		return nil, fmt.Errorf("drawing %s contains no entities", path)
	}

	outlines := collectOutlines(entities)
	if len(outlines) == 0 {
		return nil, fmt.Errorf("no closed shapes found in %s", path)
	}

	// Largest area first; that outline is the cutting boundary.
	sort.SliceStable(outlines, func(i, j int) bool {
		return outlines[i].Area() > outlines[j].Area()
	})

	boundary := outlines[0]
	if err := geom.Validate(name, boundary.Normalized()); err != nil {
		return nil, err
	}

	return model.NewShape(name, boundary, outlines[1:]), nil
}

// LoadLibrary loads every distinct drawing referenced by the entries.
// On failure it aborts with an *catalog.ImportError naming the BOM line,
// unless skipInvalid is set, in which case failing references are
// collected as warnings and simply missing from the library.
func LoadLibrary(entries []catalog.Entry, skipInvalid bool) (catalog.Library, []*catalog.ImportError, error) {
	lib := make(catalog.Library)
	var warnings []*catalog.ImportError

	for _, e := range entries {
		if _, done := lib[e.ShapeRef]; done {
			continue
		}
		shape, err := LoadShape(e.Name, e.ShapeRef)
		if err != nil {
			ierr := &catalog.ImportError{Line: e.Line, Name: e.Name, Reason: err.Error()}
			if skipInvalid {
				warnings = append(warnings, ierr)
				continue
			}
			return nil, nil, ierr
		}
		lib[e.ShapeRef] = shape
	}

	return lib, warnings, nil
}

// collectOutlines converts drawing entities into closed outlines.
// LWPOLYLINEs and CIRCLEs close on their own; loose LINEs and ARCs are
// chained by endpoint proximity.
func collectOutlines(entities []entity.Entity) []model.Outline {
	var outlines []model.Outline
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if outline := lwPolylineToOutline(e); len(outline) >= 3 {
				outlines = append(outlines, outline)
			}

		case *entity.Circle:
			outlines = append(outlines, circleToOutline(e, circleSegments))

		case *entity.Arc:
			if pts := arcToPoints(e, arcSegments); len(pts) >= 2 {
				for i := 0; i < len(pts)-1; i++ {
					segments = append(segments, segment{start: pts[i], end: pts[i+1]})
				}
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: model.Point2D{X: e.Start[0], Y: e.Start[1]},
				end:   model.Point2D{X: e.End[0], Y: e.End[1]},
			})

		default:
			// Unsupported entity types are skipped.
		}
	}

	for _, chained := range chainSegments(segments, chainTolerance) {
		if len(chained) >= 3 {
			outlines = append(outlines, chained)
		}
	}
	return outlines
}

// lwPolylineToOutline converts an LWPOLYLINE entity to an outline.
// Bulge values on vertices produce interpolated arc segments.
func lwPolylineToOutline(lw *entity.LwPolyline) model.Outline {
	var outline model.Outline

	for i := 0; i < len(lw.Vertices); i++ {
		v := lw.Vertices[i]
		current := model.Point2D{X: v[0], Y: v[1]}

		bulge := 0.0
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}

		if math.Abs(bulge) > 1e-9 {
			nextIdx := (i + 1) % len(lw.Vertices)
			next := model.Point2D{X: lw.Vertices[nextIdx][0], Y: lw.Vertices[nextIdx][1]}
			arcPts := bulgeArcPoints(current, next, bulge, arcSegments)
			// The next vertex closes the arc, so drop the duplicate.
			outline = append(outline, arcPts[:len(arcPts)-1]...)
		} else {
			outline = append(outline, current)
		}
	}

	return outline
}

// bulgeArcPoints generates points along an arc defined by two endpoints
// and a DXF bulge factor (the tangent of a quarter of the included angle).
func bulgeArcPoints(p1, p2 model.Point2D, bulge float64, numSegments int) model.Outline {
	mx := (p1.X + p2.X) / 2
	my := (p1.Y + p2.Y) / 2
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	chordLen := math.Sqrt(dx*dx + dy*dy)
	if chordLen < 1e-9 {
		return model.Outline{p1, p2}
	}

	sagitta := math.Abs(bulge) * chordLen / 2
	radius := (chordLen*chordLen/(4*sagitta) + sagitta) / 2

	perpX := -dy / chordLen
	perpY := dx / chordLen
	dist := radius - sagitta
	if bulge > 0 {
		perpX, perpY = -perpX, -perpY
	}
	cx := mx + perpX*dist
	cy := my + perpY*dist

	startAngle := math.Atan2(p1.Y-cy, p1.X-cx)
	endAngle := math.Atan2(p2.Y-cy, p2.X-cx)

	if bulge < 0 {
		if endAngle > startAngle {
			endAngle -= 2 * math.Pi
		}
	} else {
		if endAngle < startAngle {
			endAngle += 2 * math.Pi
		}
	}

	var pts model.Outline
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startAngle + t*(endAngle-startAngle)
		pts = append(pts, model.Point2D{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		})
	}
	return pts
}

// circleToOutline approximates a circle as a regular polygon.
func circleToOutline(c *entity.Circle, numSegments int) model.Outline {
	outline := make(model.Outline, numSegments)
	cx, cy, r := c.Center[0], c.Center[1], c.Radius
	for i := 0; i < numSegments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(numSegments)
		outline[i] = model.Point2D{
			X: cx + r*math.Cos(angle),
			Y: cy + r*math.Sin(angle),
		}
	}
	return outline
}

// arcToPoints converts an ARC entity to a series of points.
func arcToPoints(a *entity.Arc, numSegments int) []model.Point2D {
	cx, cy := a.Circle.Center[0], a.Circle.Center[1]
	r := a.Circle.Radius
	startRad := a.Angle[0] * math.Pi / 180
	endRad := a.Angle[1] * math.Pi / 180
	if endRad <= startRad {
		endRad += 2 * math.Pi
	}

	pts := make([]model.Point2D, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startRad + t*(endRad-startRad)
		pts[i] = model.Point2D{
			X: cx + r*math.Cos(angle),
			Y: cy + r*math.Sin(angle),
		}
	}
	return pts
}

// chainSegments connects individual segments into closed outlines.
// tolerance is the maximum endpoint distance that still counts as
// connected.
func chainSegments(segs []segment, tolerance float64) []model.Outline {
	if len(segs) == 0 {
		return nil
	}

	used := make([]bool, len(segs))
	var outlines []model.Outline

	for {
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		chain := []model.Point2D{segs[startIdx].start, segs[startIdx].end}
		used[startIdx] = true

		changed := true
		for changed {
			changed = false
			tail := chain[len(chain)-1]

			for i, seg := range segs {
				if used[i] {
					continue
				}
				if pointsClose(tail, seg.start, tolerance) {
					chain = append(chain, seg.end)
					used[i] = true
					changed = true
					break
				}
				if pointsClose(tail, seg.end, tolerance) {
					chain = append(chain, seg.start)
					used[i] = true
					changed = true
					break
				}
			}
		}

		if len(chain) >= 3 && pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			chain = chain[:len(chain)-1]
		}
		if len(chain) >= 3 {
			outlines = append(outlines, model.Outline(chain))
		}
	}

	return outlines
}

// pointsClose checks whether two points are within the given tolerance.
func pointsClose(a, b model.Point2D, tolerance float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx+dy*dy) <= tolerance
}
