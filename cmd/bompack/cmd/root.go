package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noazark/bom-pack/internal/catalog"
	"github.com/noazark/bom-pack/internal/engine"
	"github.com/noazark/bom-pack/internal/export"
	"github.com/noazark/bom-pack/internal/importer"
	"github.com/noazark/bom-pack/internal/model"
)

// ErrUnplaced marks a run that produced a layout but could not place
// every instance. It maps to its own exit code so pipelines can tell
// "partial nest" from "bad input".
var ErrUnplaced = errors.New("some parts could not be placed")

var (
	sheetWidth  float64
	sheetHeight float64
	step        float64
	spacing     float64
	rotations   string
	sortMethod  string
	maxSheets   int
	skipInvalid bool
	drawBounds  bool
	reportPath  string
	labelsPath  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "bompack <bom.csv|bom.xlsx> <output.dxf>",
	Short: "Nest DXF parts from a bill of materials onto stock sheets",
	Long: `bompack packs the parts listed in a bill of materials onto rectangular
stock sheets and writes one DXF drawing per sheet, numbered
output-1.dxf, output-2.dxf, and so on.

The BOM is a CSV or Excel file with columns: name, file, qty, and an
optional rotations column (angles in degrees, separated by ';'). File
paths are resolved relative to the BOM.

Examples:
  bompack parts.csv nest.dxf -W 600 -H 400
  bompack parts.csv nest.dxf -W 600 -H 400 --rotations 0,90,180,270
  bompack parts.xlsx nest.dxf -W 1220 -H 610 --spacing 2 --report nest.pdf`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command. Exit codes: 0 when everything was
// placed, 2 when a layout was written but some parts were unplaceable,
// 1 for configuration and import errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, ErrUnplaced) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Float64VarP(&sheetWidth, "sheet-width", "W", 0, "stock sheet width in mm (required)")
	rootCmd.Flags().Float64VarP(&sheetHeight, "sheet-height", "H", 0, "stock sheet height in mm (required)")
	rootCmd.Flags().Float64Var(&step, "step", 1.0, "anchor raster step in mm")
	rootCmd.Flags().Float64Var(&spacing, "spacing", 0, "clearance between parts in mm (kerf allowance)")
	rootCmd.Flags().StringVar(&rotations, "rotations", "0", "default allowed rotations in degrees, comma separated")
	rootCmd.Flags().StringVar(&sortMethod, "sort", "area", "part ordering: area, height, width, or perimeter")
	rootCmd.Flags().IntVar(&maxSheets, "max-sheets", 0, "maximum sheets to open, 0 for unlimited")
	rootCmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "skip BOM lines that fail validation instead of aborting")
	rootCmd.Flags().BoolVar(&drawBounds, "draw-boundaries", false, "draw part bounding boxes on a debug layer")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "also write a PDF layout report to this path")
	rootCmd.Flags().StringVar(&labelsPath, "labels", "", "also write QR part labels (PDF) to this path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.MarkFlagRequired("sheet-width")
	rootCmd.MarkFlagRequired("sheet-height")
}

func run(cmd *cobra.Command, args []string) error {
	bomPath, outPath := args[0], args[1]

	defaultRotations, err := importer.ParseRotations(rotations)
	if err != nil {
		return fmt.Errorf("--rotations: %w", err)
	}

	settings := model.DefaultSettings()
	settings.SheetWidth = sheetWidth
	settings.SheetHeight = sheetHeight
	settings.Step = step
	settings.Spacing = spacing
	settings.Rotations = defaultRotations
	settings.Sort = model.SortMethod(sortMethod)
	settings.MaxSheets = maxSheets
	if err := settings.Validate(); err != nil {
		return err
	}

	entries, err := importer.ReadBOM(bomPath)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Read %d BOM entries from %s\n", len(entries), bomPath)
	}

	lib, loadWarnings, err := importer.LoadLibrary(entries, skipInvalid)
	if err != nil {
		return err
	}

	instances, expandWarnings, err := catalog.Expand(entries, lib, catalog.Options{
		SkipInvalid:      skipInvalid,
		DefaultRotations: settings.Rotations,
	})
	if err != nil {
		return err
	}

	warnings := append(loadWarnings, expandWarnings...)
	printWarnings(cmd, warnings)

	if len(instances) == 0 {
		return fmt.Errorf("no valid parts to place")
	}

	result, err := engine.New(settings).Nest(instances)
	if err != nil {
		return err
	}

	if len(result.Sheets) > 0 {
		written, err := export.WriteDXF(outPath, result, drawBounds)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		}
	}

	if reportPath != "" && len(result.Sheets) > 0 {
		if err := export.WritePDF(reportPath, result, settings); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", reportPath)
	}
	if labelsPath != "" && result.PlacedCount() > 0 {
		if err := export.WriteLabels(labelsPath, result); err != nil {
			return fmt.Errorf("labels: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", labelsPath)
	}

	printSummary(cmd, result)

	if len(result.Unplaced) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrUnplaced, len(result.Unplaced), len(instances))
	}
	return nil
}

// printWarnings groups skipped-line warnings by failure category, the
// way the summary reads best when many lines share one failure mode.
func printWarnings(cmd *cobra.Command, warnings []*catalog.ImportError) {
	if len(warnings) == 0 {
		return
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Warning: %d BOM line(s) skipped:\n", len(warnings))

	groups := make(map[string][]*catalog.ImportError)
	var order []string
	for _, w := range warnings {
		cat := warningCategory(w.Reason)
		if _, seen := groups[cat]; !seen {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], w)
	}
	for _, cat := range order {
		fmt.Fprintf(out, "  %s:\n", cat)
		for _, w := range groups[cat] {
			fmt.Fprintf(out, "    - %s\n", w.Error())
		}
	}
}

func warningCategory(reason string) string {
	switch {
	case strings.Contains(reason, "cannot open") || strings.Contains(reason, "not found"):
		return "missing drawing"
	case strings.Contains(reason, "geometry") || strings.Contains(reason, "no closed shapes") ||
		strings.Contains(reason, "no entities"):
		return "bad geometry"
	case strings.Contains(reason, "quantity"):
		return "bad quantity"
	default:
		return "other"
	}
}

func printSummary(cmd *cobra.Command, result model.LayoutResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nPacked %d part(s) onto %d sheet(s)\n", result.PlacedCount(), len(result.Sheets))

	if len(result.Sheets) > 0 {
		var utils []string
		for _, s := range result.Sheets {
			utils = append(utils, fmt.Sprintf("%.2f%%", s.Utilization()*100))
		}
		fmt.Fprintf(out, "Sheet utilization: %s\n", strings.Join(utils, ", "))
		fmt.Fprintf(out, "Overall utilization: %.2f%%\n", result.TotalUtilization()*100)
	}

	if verbose {
		for _, s := range result.Sheets {
			fmt.Fprintf(out, "Sheet %d:\n", s.Index+1)
			for _, p := range s.Placements {
				fmt.Fprintf(out, "  %s at (%.2f, %.2f) rotation %g\n", p.ShapeName, p.X, p.Y, p.Rotation)
			}
		}
	}

	if len(result.Unplaced) > 0 {
		fmt.Fprintf(out, "Unplaceable parts: %d\n", len(result.Unplaced))
		for _, inst := range result.Unplaced {
			fmt.Fprintf(out, "  - %s (%.0f x %.0f mm)\n", inst.Shape.Name, inst.Shape.Width(), inst.Shape.Height())
		}
	}
}
