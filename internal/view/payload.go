package view

import "gonum.org/v1/gonum/mat"

// ExportItem is one named array in a flattened export payload. Exactly one
// of Values and Grid is set.
type ExportItem struct {
	Name   string
	Unit   string
	Values []float64
	Grid   *mat.Dense
}

// ExportItems flattens the snapshot into the arrays a reader needs to
// reproduce the plot: coordinates, the plotted array, and the slice when
// one is shown. Slice arrays are prefixed "slice_"; SliceIndex reports the
// cut position.
func (s *Snapshot) ExportItems() []ExportItem {
	var items []ExportItem
	items = append(items, ExportItem{Name: s.X.Name, Unit: s.X.Unit.String(), Values: s.X.Values})
	if s.Is2D {
		items = append(items,
			ExportItem{Name: s.Y.Name, Unit: s.Y.Unit.String(), Values: s.Y.Values},
			ExportItem{Name: s.Z.Name, Unit: s.Z.Unit.String(), Grid: s.Z.Z},
		)
	} else {
		items = append(items, ExportItem{Name: s.Y.Name, Unit: s.Y.Unit.String(), Values: s.Y.Values})
	}
	if s.Slice != nil {
		items = append(items,
			ExportItem{
				Name:   "slice_" + s.Slice.Coords.Name,
				Unit:   s.Slice.Coords.Unit.String(),
				Values: s.Slice.Coords.Values,
			},
			ExportItem{
				Name:   "slice_" + s.Slice.Values.Name,
				Unit:   s.Slice.Values.Unit.String(),
				Values: s.Slice.Values.Values,
			},
		)
	}
	return items
}

// SliceIndex returns the slice position and whether a slice is present.
func (s *Snapshot) SliceIndex() (int, bool) {
	if s.Slice == nil {
		return 0, false
	}
	return s.Slice.Index, true
}
