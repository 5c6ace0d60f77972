package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/noazark/bom-pack/internal/model"
)

// partColor represents an RGB fill color for a placed part.
type partColor struct {
	R, G, B int
}

var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// WritePDF generates a PDF report for the layout: one page per sheet
// with the nested outlines drawn to scale, then a summary page.
func WritePDF(path string, result model.LayoutResult, settings model.NestSettings) error {
	if len(result.Sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, sheet := range result.Sheets {
		pdf.AddPage()
		renderSheetPage(pdf, sheet)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, result, settings)

	return pdf.OutputFileAndClose(path)
}

// renderSheetPage draws a single sheet layout on the current page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet model.SheetLayout) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d (%.0f x %.0f mm)", sheet.Index+1, sheet.Width, sheet.Height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Parts: %d | Used area: %.0f mm² | Utilization: %.1f%%",
		len(sheet.Placements), sheet.UsedArea(), sheet.Utilization()*100)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight
	scale := math.Min(drawWidth/sheet.Width, drawHeight/sheet.Height)

	canvasW := sheet.Width * scale
	canvasH := sheet.Height * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Sheet background.
	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	// The sheet's Y axis points up; PDF pages point down, so flip.
	toPage := func(p model.Point2D) (float64, float64) {
		return offsetX + p.X*scale, offsetY + (sheet.Height-p.Y)*scale
	}

	for i, p := range sheet.Placements {
		col := partColors[i%len(partColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		drawPolygon(pdf, p.Outline, toPage, "FD")

		for _, d := range p.Shape.Details {
			pdf.SetFillColor(255, 255, 255)
			drawPolygon(pdf, p.Transform(d), toPage, "FD")
		}

		labelPlacement(pdf, p, scale, toPage)
	}

	drawDimensions(pdf, sheet, offsetX, offsetY, canvasW, canvasH)
	drawLegend(pdf, sheet, offsetY+canvasH+5)
}

// drawPolygon renders an outline through the sheet-to-page mapping.
func drawPolygon(pdf *fpdf.Fpdf, o model.Outline, toPage func(model.Point2D) (float64, float64), style string) {
	if len(o) < 3 {
		return
	}
	points := make([]fpdf.PointType, len(o))
	for i, p := range o {
		x, y := toPage(p)
		points[i] = fpdf.PointType{X: x, Y: y}
	}
	pdf.Polygon(points, style)
}

// labelPlacement writes the part name at the placement's bounding-box
// center when there is room for it.
func labelPlacement(pdf *fpdf.Fpdf, p model.Placement, scale float64, toPage func(model.Point2D) (float64, float64)) {
	bb := p.Outline.BoundingBox()
	pw := bb.Width() * scale
	ph := bb.Height() * scale
	if pw < 15 || ph < 8 {
		return
	}

	pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
	pdf.SetTextColor(0, 0, 0)

	label := p.ShapeName
	if p.Rotation != 0 {
		label = fmt.Sprintf("%s (%g°)", p.ShapeName, p.Rotation)
	}
	labelW := pdf.GetStringWidth(label)
	if labelW >= pw-2 {
		return
	}

	cx, cy := toPage(model.Point2D{X: (bb.MinX + bb.MaxX) / 2, Y: (bb.MinY + bb.MaxY) / 2})
	pdf.SetXY(cx-labelW/2, cy-2)
	pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
}

// drawDimensions adds width and height labels outside the sheet rectangle.
func drawDimensions(pdf *fpdf.Fpdf, sheet model.SheetLayout, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f mm", sheet.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.0f mm", sheet.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawLegend renders a compact list of placed parts below the drawing.
func drawLegend(pdf *fpdf.Fpdf, sheet model.SheetLayout, startY float64) {
	if len(sheet.Placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Parts placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range sheet.Placements {
		col := partColors[i%len(partColors)]
		bb := p.Outline.BoundingBox()
		label := fmt.Sprintf("%s (%.0fx%.0f)", p.ShapeName, bb.Width(), bb.Height())
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.LayoutResult, settings model.NestSettings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Nesting Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	summaryItems := []struct {
		label string
		value string
	}{
		{"Sheets Used", fmt.Sprintf("%d", len(result.Sheets))},
		{"Overall Utilization", fmt.Sprintf("%.1f%%", result.TotalUtilization()*100)},
		{"Parts Placed", fmt.Sprintf("%d", result.PlacedCount())},
		{"Unplaceable Parts", fmt.Sprintf("%d", len(result.Unplaced))},
		{"Sheet Size", fmt.Sprintf("%.0f x %.0f mm", settings.SheetWidth, settings.SheetHeight)},
		{"Raster Step", fmt.Sprintf("%.1f mm", settings.Step)},
		{"Spacing", fmt.Sprintf("%.1f mm", settings.Spacing)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	// Per-sheet breakdown table.
	colWidths := []float64{20, 50, 40, 45}
	headers := []string{"Sheet", "Dimensions", "Parts", "Utilization"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, sheet := range result.Sheets {
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", sheet.Index+1),
			fmt.Sprintf("%.0f x %.0f mm", sheet.Width, sheet.Height),
			fmt.Sprintf("%d", len(sheet.Placements)),
			fmt.Sprintf("%.1f%%", sheet.Utilization()*100),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(result.Unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaceable Parts", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)

		for _, inst := range result.Unplaced {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %.0f x %.0f mm", inst.Shape.Name, inst.Shape.Width(), inst.Shape.Height())
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}
}

// labelFontSize returns a font size appropriate for the available room.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
