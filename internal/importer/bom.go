// Package importer reads bills of materials (CSV or Excel) and the DXF
// drawings they reference, producing catalog entries and a validated
// shape library. It supports automatic delimiter detection, flexible
// column mapping, and case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/noazark/bom-pack/internal/catalog"
)

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Name      int
	File      int
	Quantity  int
	Rotations int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"name":      {"name", "label", "part", "part name", "description", "desc", "item"},
	"file":      {"file", "file_path", "filepath", "path", "drawing", "dxf", "shape"},
	"quantity":  {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"rotations": {"rotations", "rotation", "rot", "angles", "allowed rotations"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV
// delimiter. It tries comma, semicolon, tab, and pipe. The delimiter that
// produces the most consistent column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping. Matching is
// case-insensitive against known aliases. Returns the mapping and true if a
// header was detected, or the default positional mapping (name, file,
// quantity, rotations) and false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Name: -1, File: -1, Quantity: -1, Rotations: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias {
					isHeader = true
					switch role {
					case "name":
						if mapping.Name == -1 {
							mapping.Name = i
						}
					case "file":
						if mapping.File == -1 {
							mapping.File = i
						}
					case "quantity":
						if mapping.Quantity == -1 {
							mapping.Quantity = i
						}
					case "rotations":
						if mapping.Rotations == -1 {
							mapping.Rotations = i
						}
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{Name: 0, File: 1, Quantity: 2, Rotations: 3}, false
	}
	return mapping, true
}

// ParseRotations parses a rotation list like "0;90;180" into degrees.
// Semicolons, pipes, slashes, and spaces all separate values, so the
// list survives inside a comma-delimited CSV cell.
func ParseRotations(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '|' || r == '/' || r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty rotation list")
	}
	var out []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rotation %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRow extracts a catalog entry from a row using the given column
// mapping. Relative drawing paths are resolved against baseDir.
func parseRow(row []string, mapping ColumnMapping, line int, baseDir string) (catalog.Entry, *catalog.ImportError) {
	name := getCell(row, mapping.Name)
	file := getCell(row, mapping.File)
	if file == "" {
		return catalog.Entry{}, &catalog.ImportError{Line: line, Name: name, Reason: "missing drawing file path"}
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	qtyStr := getCell(row, mapping.Quantity)
	if qtyStr == "" {
		return catalog.Entry{}, &catalog.ImportError{Line: line, Name: name, Reason: "missing quantity"}
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return catalog.Entry{}, &catalog.ImportError{Line: line, Name: name, Reason: fmt.Sprintf("invalid quantity %q", qtyStr)}
	}

	var rotations []float64
	if rotStr := getCell(row, mapping.Rotations); rotStr != "" {
		rotations, err = ParseRotations(rotStr)
		if err != nil {
			return catalog.Entry{}, &catalog.ImportError{Line: line, Name: name, Reason: err.Error()}
		}
	}

	if !filepath.IsAbs(file) {
		file = filepath.Join(baseDir, file)
	}

	return catalog.Entry{
		Line:      line,
		Name:      name,
		ShapeRef:  file,
		Quantity:  qty,
		Rotations: rotations,
	}, nil
}

// ReadBOM reads a bill of materials from a CSV or Excel file, dispatching
// on the file extension.
func ReadBOM(path string) ([]catalog.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readBOMExcel(path)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls workbooks are not supported; save %s as .xlsx", path)
	default:
		return readBOMCSV(path)
	}
}

func readBOMCSV(path string) ([]catalog.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open BOM file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("BOM file %s is empty", path)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectCSVDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot read BOM CSV: %w", err)
	}

	return entriesFromRows(records, filepath.Dir(path))
}

func readBOMExcel(path string) ([]catalog.Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open BOM workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("BOM workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("cannot read BOM workbook: %w", err)
	}

	return entriesFromRows(rows, filepath.Dir(path))
}

// entriesFromRows is the shared parsing logic for CSV and Excel data.
func entriesFromRows(rows [][]string, baseDir string) ([]catalog.Entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("BOM has no data rows")
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		var missing []string
		if mapping.File == -1 {
			missing = append(missing, "file")
		}
		if mapping.Quantity == -1 {
			missing = append(missing, "quantity")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("required columns not found in BOM header: %s", strings.Join(missing, ", "))
		}
	}

	var entries []catalog.Entry
	for i := startRow; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		entry, perr := parseRow(rows[i], mapping, i+1, baseDir)
		if perr != nil {
			return nil, perr
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("BOM has no data rows")
	}
	return entries, nil
}
