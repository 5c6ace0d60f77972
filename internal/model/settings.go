package model

import "fmt"

// SortMethod selects the key used to order instances before placement.
// Sorting is always descending; larger parts go first.
type SortMethod string

const (
	SortArea      SortMethod = "area"      // bounding-box area
	SortHeight    SortMethod = "height"    // bounding-box height
	SortWidth     SortMethod = "width"     // bounding-box width
	SortPerimeter SortMethod = "perimeter" // bounding-box half perimeter
)

// NestSettings holds the nesting configuration for one run.
type NestSettings struct {
	SheetWidth  float64    `json:"sheet_width"`  // stock sheet width in mm
	SheetHeight float64    `json:"sheet_height"` // stock sheet height in mm
	Step        float64    `json:"step"`         // anchor raster step in mm
	Spacing     float64    `json:"spacing"`      // clearance kept between parts in mm
	Rotations   []float64  `json:"rotations"`    // default allowed rotations in degrees
	Sort        SortMethod `json:"sort"`
	MaxSheets   int        `json:"max_sheets"` // 0 means unlimited
}

// DefaultSettings returns the stock configuration: 1mm raster, no
// clearance, no rotation, largest-area-first ordering.
func DefaultSettings() NestSettings {
	return NestSettings{
		Step:      1.0,
		Spacing:   0,
		Rotations: []float64{0},
		Sort:      SortArea,
		MaxSheets: 0,
	}
}

// ConfigurationError reports an invalid nesting configuration. It is
// fatal and raised before any placement work begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Validate rejects dimension and step values the engine cannot work with.
func (s NestSettings) Validate() error {
	if s.SheetWidth <= 0 {
		return &ConfigurationError{Field: "sheet width", Reason: "must be positive"}
	}
	if s.SheetHeight <= 0 {
		return &ConfigurationError{Field: "sheet height", Reason: "must be positive"}
	}
	if s.Step <= 0 {
		return &ConfigurationError{Field: "step", Reason: "must be positive"}
	}
	if s.Spacing < 0 {
		return &ConfigurationError{Field: "spacing", Reason: "must not be negative"}
	}
	if s.MaxSheets < 0 {
		return &ConfigurationError{Field: "max sheets", Reason: "must not be negative"}
	}
	if len(s.Rotations) == 0 {
		return &ConfigurationError{Field: "rotations", Reason: "must list at least one angle"}
	}
	switch s.Sort {
	case SortArea, SortHeight, SortWidth, SortPerimeter:
	default:
		return &ConfigurationError{Field: "sort", Reason: fmt.Sprintf("unknown method %q", s.Sort)}
	}
	return nil
}
