package importer

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/yofu/dxf"

	"github.com/noazark/bom-pack/internal/catalog"
	"github.com/noazark/bom-pack/internal/model"
)

func TestLoadShapeFromCircle(t *testing.T) {
	dir := t.TempDir()
	drawing := dxf.NewDrawing()
	if _, err := drawing.Circle(0, 0, 0, 10); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "disc.dxf")
	if err := drawing.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	shape, err := LoadShape("disc", path)
	if err != nil {
		t.Fatalf("LoadShape: %v", err)
	}
	if len(shape.Outline) != circleSegments {
		t.Errorf("got %d points, want %d", len(shape.Outline), circleSegments)
	}
	if math.Abs(shape.Width()-20) > 1e-6 || math.Abs(shape.Height()-20) > 1e-6 {
		t.Errorf("bbox = %gx%g, want 20x20", shape.Width(), shape.Height())
	}
	// The polygon approximation stays just under the true circle area.
	trueArea := math.Pi * 100
	if shape.Area > trueArea || shape.Area < trueArea*0.99 {
		t.Errorf("area = %g, want just under %g", shape.Area, trueArea)
	}
}

func TestBulgeArcPoints(t *testing.T) {
	// Bulge 1 is a half circle: chord 10 wide, so radius 5.
	p1 := model.Point2D{X: 0, Y: 0}
	p2 := model.Point2D{X: 10, Y: 0}
	pts := bulgeArcPoints(p1, p2, 1, 16)

	if len(pts) != 17 {
		t.Fatalf("got %d points, want 17", len(pts))
	}
	if math.Hypot(pts[0].X-p1.X, pts[0].Y-p1.Y) > 1e-9 {
		t.Errorf("arc does not start at p1: %+v", pts[0])
	}
	last := pts[len(pts)-1]
	if math.Hypot(last.X-p2.X, last.Y-p2.Y) > 1e-9 {
		t.Errorf("arc does not end at p2: %+v", last)
	}

	// Every point sits on the circle of radius 5 around (5, 0).
	for i, p := range pts {
		r := math.Hypot(p.X-5, p.Y)
		if math.Abs(r-5) > 1e-6 {
			t.Errorf("point %d at radius %g, want 5", i, r)
		}
	}

	// Positive bulge arcs counter-clockwise, so the midpoint is above the chord.
	if pts[8].Y <= 0 {
		t.Errorf("midpoint y = %g, want positive", pts[8].Y)
	}

	// Negative bulge mirrors below.
	neg := bulgeArcPoints(p1, p2, -1, 16)
	if neg[8].Y >= 0 {
		t.Errorf("negative bulge midpoint y = %g, want negative", neg[8].Y)
	}
}

func TestBulgeArcPointsDegenerateChord(t *testing.T) {
	p := model.Point2D{X: 5, Y: 5}
	pts := bulgeArcPoints(p, p, 1, 16)
	if len(pts) != 2 {
		t.Errorf("got %d points for zero chord, want 2", len(pts))
	}
}

func TestChainSegments(t *testing.T) {
	// Four loose lines forming a 10mm square, listed out of order.
	segs := []segment{
		{start: model.Point2D{X: 0, Y: 0}, end: model.Point2D{X: 10, Y: 0}},
		{start: model.Point2D{X: 0, Y: 10}, end: model.Point2D{X: 0, Y: 0}},
		{start: model.Point2D{X: 10, Y: 0}, end: model.Point2D{X: 10, Y: 10}},
		{start: model.Point2D{X: 10, Y: 10}, end: model.Point2D{X: 0, Y: 10}},
	}

	outlines := chainSegments(segs, 0.01)
	if len(outlines) != 1 {
		t.Fatalf("got %d outlines, want 1", len(outlines))
	}
	if len(outlines[0]) != 4 {
		t.Errorf("got %d points, want 4", len(outlines[0]))
	}
	if a := outlines[0].Area(); math.Abs(a-100) > 1e-9 {
		t.Errorf("area = %g, want 100", a)
	}
}

func TestChainSegmentsReversedDirection(t *testing.T) {
	// The second segment runs backwards; chaining must flip it.
	segs := []segment{
		{start: model.Point2D{X: 0, Y: 0}, end: model.Point2D{X: 10, Y: 0}},
		{start: model.Point2D{X: 10, Y: 10}, end: model.Point2D{X: 10, Y: 0}},
		{start: model.Point2D{X: 10, Y: 10}, end: model.Point2D{X: 0, Y: 0}},
	}

	outlines := chainSegments(segs, 0.01)
	if len(outlines) != 1 {
		t.Fatalf("got %d outlines, want 1", len(outlines))
	}
	if a := outlines[0].Area(); math.Abs(a-50) > 1e-9 {
		t.Errorf("area = %g, want 50", a)
	}
}

func TestChainSegmentsOpenChainDropped(t *testing.T) {
	segs := []segment{
		{start: model.Point2D{X: 0, Y: 0}, end: model.Point2D{X: 10, Y: 0}},
		{start: model.Point2D{X: 10, Y: 0}, end: model.Point2D{X: 10, Y: 10}},
	}
	// Two segments never close; the chain has 3 points but stays open.
	// It survives as an outline candidate and gets rejected later by
	// validation, which is the importer's contract.
	outlines := chainSegments(segs, 0.01)
	for _, o := range outlines {
		if len(o) < 3 {
			t.Errorf("outline with %d points leaked", len(o))
		}
	}
}

func TestChainSegmentsEmpty(t *testing.T) {
	if got := chainSegments(nil, 0.01); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestPointsClose(t *testing.T) {
	a := model.Point2D{X: 0, Y: 0}
	if !pointsClose(a, model.Point2D{X: 0.005, Y: 0}, 0.01) {
		t.Error("points within tolerance reported apart")
	}
	if pointsClose(a, model.Point2D{X: 0.02, Y: 0}, 0.01) {
		t.Error("points beyond tolerance reported close")
	}
}

// writeSquareDXF writes a minimal drawing with a closed polyline
// boundary and returns its path.
func writeSquareDXF(t *testing.T, dir, name string, size float64) string {
	t.Helper()
	drawing := dxf.NewDrawing()
	drawing.LwPolyline(true,
		[]float64{0, 0},
		[]float64{size, 0},
		[]float64{size, size},
		[]float64{0, size},
	)
	path := filepath.Join(dir, name)
	if err := drawing.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadShape(t *testing.T) {
	path := writeSquareDXF(t, t.TempDir(), "plate.dxf", 50)

	shape, err := LoadShape("plate", path)
	if err != nil {
		t.Fatalf("LoadShape: %v", err)
	}
	if shape.Name != "plate" {
		t.Errorf("name = %q, want plate", shape.Name)
	}
	if math.Abs(shape.Width()-50) > 1e-9 || math.Abs(shape.Height()-50) > 1e-9 {
		t.Errorf("bbox = %gx%g, want 50x50", shape.Width(), shape.Height())
	}
	if math.Abs(shape.Area-2500) > 1e-9 {
		t.Errorf("area = %g, want 2500", shape.Area)
	}
}

func TestLoadShapeLargestIsBoundary(t *testing.T) {
	dir := t.TempDir()
	drawing := dxf.NewDrawing()
	drawing.LwPolyline(true,
		[]float64{0, 0},
		[]float64{40, 0},
		[]float64{40, 40},
		[]float64{0, 40},
	)
	// A smaller inner outline becomes a detail, not the boundary.
	drawing.LwPolyline(true,
		[]float64{10, 10},
		[]float64{20, 10},
		[]float64{20, 20},
		[]float64{10, 20},
	)
	path := filepath.Join(dir, "holed.dxf")
	if err := drawing.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	shape, err := LoadShape("holed", path)
	if err != nil {
		t.Fatalf("LoadShape: %v", err)
	}
	if math.Abs(shape.Area-1600) > 1e-9 {
		t.Errorf("boundary area = %g, want 1600", shape.Area)
	}
	if len(shape.Details) != 1 {
		t.Fatalf("got %d details, want 1", len(shape.Details))
	}
}

func TestLoadShapeMissingFile(t *testing.T) {
	if _, err := LoadShape("ghost", filepath.Join(t.TempDir(), "ghost.dxf")); err == nil {
		t.Error("expected error for missing drawing")
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	plate := writeSquareDXF(t, dir, "plate.dxf", 50)
	bracket := writeSquareDXF(t, dir, "bracket.dxf", 20)

	entries := []catalog.Entry{
		{Line: 2, Name: "plate", ShapeRef: plate, Quantity: 2},
		{Line: 3, Name: "bracket", ShapeRef: bracket, Quantity: 1},
		{Line: 4, Name: "plate again", ShapeRef: plate, Quantity: 1},
	}

	lib, warnings, err := LoadLibrary(entries, false)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(lib) != 2 {
		t.Errorf("got %d shapes, want 2 (deduplicated)", len(lib))
	}
}

func TestLoadLibraryAbortsOnMissing(t *testing.T) {
	dir := t.TempDir()
	entries := []catalog.Entry{
		{Line: 2, Name: "ghost", ShapeRef: filepath.Join(dir, "ghost.dxf"), Quantity: 1},
	}

	_, _, err := LoadLibrary(entries, false)
	if err == nil {
		t.Fatal("expected error")
	}
	ierr, ok := err.(*catalog.ImportError)
	if !ok {
		t.Fatalf("error type %T, want *catalog.ImportError", err)
	}
	if ierr.Line != 2 {
		t.Errorf("line = %d, want 2", ierr.Line)
	}
}

func TestLoadLibrarySkipInvalid(t *testing.T) {
	dir := t.TempDir()
	plate := writeSquareDXF(t, dir, "plate.dxf", 50)
	entries := []catalog.Entry{
		{Line: 2, Name: "plate", ShapeRef: plate, Quantity: 1},
		{Line: 3, Name: "ghost", ShapeRef: filepath.Join(dir, "ghost.dxf"), Quantity: 1},
	}

	lib, warnings, err := LoadLibrary(entries, true)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	if len(lib) != 1 {
		t.Errorf("got %d shapes, want 1", len(lib))
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].Line != 3 {
		t.Errorf("warning line = %d, want 3", warnings[0].Line)
	}
}
