// Package catalog resolves bill-of-materials entries against a shape
// library, expanding quantities into individual placeable instances.
package catalog

import (
	"fmt"

	"github.com/noazark/bom-pack/internal/geom"
	"github.com/noazark/bom-pack/internal/model"
)

// Entry is one bill-of-materials line.
type Entry struct {
	Line      int       // 1-based line number in the source BOM, for error reporting
	Name      string    // part name
	ShapeRef  string    // key into the shape library (typically a resolved drawing path)
	Quantity  int
	Rotations []float64 // nil means use the run default
}

// Library maps shape references to loaded shapes.
type Library map[string]*model.Shape

// ImportError reports a BOM entry that cannot be resolved into valid
// instances. It always names the offending line.
type ImportError struct {
	Line   int
	Name   string
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("BOM line %d (%s): %s", e.Line, e.Name, e.Reason)
}

// Options controls how Expand handles invalid entries.
type Options struct {
	// SkipInvalid collects failing entries as warnings instead of
	// aborting. Off by default: a silently partial layout would
	// understate required material.
	SkipInvalid bool
	// DefaultRotations applies to entries without their own rotation set.
	DefaultRotations []float64
}

// Expand turns BOM entries into placeable instances, one per quantity
// unit, all referencing the shared Shape from the library. Validation
// failures abort with an *ImportError unless opts.SkipInvalid is set, in
// which case they are returned as warnings and the line is dropped.
func Expand(entries []Entry, lib Library, opts Options) ([]model.Instance, []*ImportError, error) {
	var instances []model.Instance
	var skipped []*ImportError

	fail := func(err *ImportError) error {
		if opts.SkipInvalid {
			skipped = append(skipped, err)
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.Quantity <= 0 {
			if err := fail(&ImportError{Line: e.Line, Name: e.Name, Reason: fmt.Sprintf("quantity must be positive, got %d", e.Quantity)}); err != nil {
				return nil, nil, err
			}
			continue
		}
		shape, ok := lib[e.ShapeRef]
		if !ok {
			if err := fail(&ImportError{Line: e.Line, Name: e.Name, Reason: fmt.Sprintf("shape %q not found in library", e.ShapeRef)}); err != nil {
				return nil, nil, err
			}
			continue
		}
		if verr := geom.Validate(shape.Name, shape.Outline); verr != nil {
			if err := fail(&ImportError{Line: e.Line, Name: e.Name, Reason: verr.Error()}); err != nil {
				return nil, nil, err
			}
			continue
		}

		rotations := e.Rotations
		if len(rotations) == 0 {
			rotations = opts.DefaultRotations
		}
		for i := 0; i < e.Quantity; i++ {
			instances = append(instances, model.NewInstance(shape, rotations))
		}
	}

	return instances, skipped, nil
}
