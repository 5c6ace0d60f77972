// Package engine implements the nesting heuristic: a deterministic
// bottom-left-fill scan that assigns each placeable instance a sheet,
// position, and rotation, or reports it unplaceable.
package engine

import (
	"sort"

	"github.com/noazark/bom-pack/internal/geom"
	"github.com/noazark/bom-pack/internal/model"
)

// Nester runs the placement algorithm over a set of instances.
type Nester struct {
	Settings model.NestSettings
	strategy Strategy
}

// Strategy decides where (and whether) one instance goes on one sheet.
// The shipped strategy is first-fit bottom-left; richer searches can be
// swapped in without touching the data model or the geometry kernel.
type Strategy interface {
	// Place tries the instance on the sheet and returns the accepted
	// placement, or ok=false when no position admits it.
	Place(sheet *sheetState, inst model.Instance, settings model.NestSettings) (model.Placement, bool)
}

// New creates a Nester with the bottom-left first-fit strategy.
func New(settings model.NestSettings) *Nester {
	return &Nester{Settings: settings, strategy: bottomLeft{}}
}

// sheetState pairs a growing layout with its occupancy index for the
// duration of one run.
type sheetState struct {
	layout model.SheetLayout
	index  *occupancy
}

// orientation is a precomputed rotation candidate for one instance.
type orientation struct {
	angle   float64
	outline model.Outline // rotated boundary, normalized to origin
	width   float64
	height  float64
}

// Nest places every instance or records it as unplaceable. The result
// is deterministic for identical input: ordering is stable, rotations
// are tried in declared order, and anchors are scanned left-to-right,
// bottom-to-top, first fit wins. Settings are validated before any
// placement work begins; a ConfigurationError aborts the run.
func (n *Nester) Nest(instances []model.Instance) (model.LayoutResult, error) {
	if err := n.Settings.Validate(); err != nil {
		return model.LayoutResult{}, err
	}

	ordered := n.order(instances)

	var sheets []*sheetState
	var result model.LayoutResult

	for _, inst := range ordered {
		placed := false
		for _, sheet := range sheets {
			if p, ok := n.strategy.Place(sheet, inst, n.Settings); ok {
				n.accept(sheet, p)
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		if n.Settings.MaxSheets > 0 && len(sheets) >= n.Settings.MaxSheets {
			result.Unplaced = append(result.Unplaced, inst)
			continue
		}

		// Open a fresh sheet and retry from its origin. A sheet is only
		// kept if its first instance lands; an instance too large for
		// empty stock is unplaceable and must not leak empty sheets.
		fresh := &sheetState{
			layout: model.SheetLayout{
				Index:  len(sheets),
				Width:  n.Settings.SheetWidth,
				Height: n.Settings.SheetHeight,
			},
			index: newOccupancy(n.Settings.Spacing),
		}
		if p, ok := n.strategy.Place(fresh, inst, n.Settings); ok {
			n.accept(fresh, p)
			sheets = append(sheets, fresh)
		} else {
			result.Unplaced = append(result.Unplaced, inst)
		}
	}

	for _, s := range sheets {
		result.Sheets = append(result.Sheets, s.layout)
	}
	return result, nil
}

// accept records the placement on the sheet and registers its outline
// with the occupancy index for subsequent overlap pruning.
func (n *Nester) accept(sheet *sheetState, p model.Placement) {
	sheet.layout.Placements = append(sheet.layout.Placements, p)
	sheet.index.add(p.Outline)
}

// order sorts instances by the configured key, descending, keeping the
// input order for ties so runs are reproducible.
func (n *Nester) order(instances []model.Instance) []model.Instance {
	ordered := make([]model.Instance, len(instances))
	copy(ordered, instances)

	key := func(inst model.Instance) float64 {
		bb := inst.Shape.BBox
		switch n.Settings.Sort {
		case model.SortHeight:
			return bb.Height()
		case model.SortWidth:
			return bb.Width()
		case model.SortPerimeter:
			return bb.Width() + bb.Height()
		default:
			return bb.Area()
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return key(ordered[i]) > key(ordered[j])
	})
	return ordered
}

// bottomLeft is the first-fit bottom-left-fill strategy: scan anchor
// positions bottom-to-top, left-to-right at the configured step and take
// the first one where the part is contained in the sheet and clear of
// every prior placement.
type bottomLeft struct{}

func (bottomLeft) Place(sheet *sheetState, inst model.Instance, settings model.NestSettings) (model.Placement, bool) {
	bounds := sheet.layout.Bounds()

	for _, o := range orientations(inst, bounds) {
		ys := anchors(bounds.Height()-o.height, settings.Step)
		xs := anchors(bounds.Width()-o.width, settings.Step)

		for _, y := range ys {
			for _, x := range xs {
				bb := model.Rect{MinX: x, MinY: y, MaxX: x + o.width, MaxY: y + o.height}
				candidate := o.outline.Translate(x, y)

				if !geom.ContainedIn(candidate, bounds) {
					continue
				}
				if sheet.index.conflicts(candidate, bb) {
					continue
				}

				return model.Placement{
					InstanceID: inst.ID,
					Shape:      inst.Shape,
					ShapeName:  inst.Shape.Name,
					X:          x,
					Y:          y,
					Rotation:   o.angle,
					Outline:    candidate,
				}, true
			}
		}
	}
	return model.Placement{}, false
}

// orientations precomputes the rotated, origin-normalized boundary for
// each allowed angle, dropping rotations that cannot fit the sheet at
// all. Angles keep their declared order.
func orientations(inst model.Instance, bounds model.Rect) []orientation {
	var result []orientation
	for _, angle := range inst.Rotations {
		rotated := inst.Shape.Outline.Rotate(angle).Normalized()
		bb := rotated.BoundingBox()
		if bb.Width() > bounds.Width()+model.Epsilon || bb.Height() > bounds.Height()+model.Epsilon {
			continue
		}
		result = append(result, orientation{
			angle:   angle,
			outline: rotated,
			width:   bb.Width(),
			height:  bb.Height(),
		})
	}
	return result
}

// anchors returns the raster coordinates 0, step, 2*step, ... plus the
// exact limit, so a part that fits the sheet to the millimeter still
// gets its flush position probed.
func anchors(limit, step float64) []float64 {
	if limit < -model.Epsilon {
		return nil
	}
	if limit < model.Epsilon {
		return []float64{0}
	}
	var out []float64
	for x := 0.0; x < limit-model.Epsilon; x += step {
		out = append(out, x)
	}
	return append(out, limit)
}
