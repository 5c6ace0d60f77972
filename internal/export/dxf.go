// Package export turns a layout result into deliverables: the packed
// DXF drawings, a PDF report, and QR-coded part labels.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/noazark/bom-pack/internal/model"
)

// WriteDXF writes one drawing per sheet, numbered base-1.dxf, base-2.dxf
// and so on next to the requested output path. Each placement's outlines
// go on a layer named after the part and its instance; the sheet border
// goes on its own layer. With drawBoundaries set, each part's bounding
// box is drawn on a DEBUG layer as well. Returns the written file paths.
func WriteDXF(outPath string, result model.LayoutResult, drawBoundaries bool) ([]string, error) {
	if len(result.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets to export")
	}

	ext := filepath.Ext(outPath)
	base := strings.TrimSuffix(outPath, ext)
	if ext == "" {
		ext = ".dxf"
	}

	var written []string
	for _, sheet := range result.Sheets {
		path := fmt.Sprintf("%s-%d%s", base, sheet.Index+1, ext)
		if err := writeSheet(path, sheet, drawBoundaries); err != nil {
			return written, fmt.Errorf("sheet %d: %w", sheet.Index+1, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeSheet(path string, sheet model.SheetLayout, drawBoundaries bool) error {
	dwg := dxf.NewDrawing()

	// Sheet border first, so the stock extent is always visible.
	if err := setLayer(dwg, "SHEET", color.Green); err != nil {
		return err
	}
	border := model.Outline{
		{X: 0, Y: 0},
		{X: sheet.Width, Y: 0},
		{X: sheet.Width, Y: sheet.Height},
		{X: 0, Y: sheet.Height},
	}
	if err := drawOutline(dwg, border); err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, p := range sheet.Placements {
		counts[p.ShapeName]++
		layer := layerName(p.ShapeName, counts[p.ShapeName])
		if err := setLayer(dwg, layer, dxf.DefaultColor); err != nil {
			return err
		}

		if err := drawOutline(dwg, p.Outline); err != nil {
			return err
		}
		for _, d := range p.Shape.Details {
			if err := drawOutline(dwg, p.Transform(d)); err != nil {
				return err
			}
		}

		if drawBoundaries {
			if err := setLayer(dwg, "DEBUG_"+layer, color.Red); err != nil {
				return err
			}
			bb := p.Outline.BoundingBox()
			box := model.Outline{
				{X: bb.MinX, Y: bb.MinY},
				{X: bb.MaxX, Y: bb.MinY},
				{X: bb.MaxX, Y: bb.MaxY},
				{X: bb.MinX, Y: bb.MaxY},
			}
			if err := drawOutline(dwg, box); err != nil {
				return err
			}
		}
	}

	return dwg.SaveAs(path)
}

// setLayer creates the layer and makes it current, falling back to
// switching when a layer of that name already exists.
func setLayer(dwg *drawing.Drawing, name string, cl color.ColorNumber) error {
	if _, err := dwg.AddLayer(name, cl, dxf.DefaultLineType, true); err != nil {
		return dwg.ChangeLayer(name)
	}
	return nil
}

// drawOutline writes a closed polyline for the outline on the drawing's
// current layer.
func drawOutline(dwg *drawing.Drawing, o model.Outline) error {
	if len(o) < 2 {
		return nil
	}
	vertices := make([][]float64, len(o))
	for i, p := range o {
		vertices[i] = []float64{p.X, p.Y}
	}
	_, err := dwg.LwPolyline(true, vertices...)
	return err
}

// layerName builds a DXF-safe layer name for one part instance.
func layerName(shapeName string, instance int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(shapeName) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "PART"
	}
	return fmt.Sprintf("%s_%d", name, instance)
}
