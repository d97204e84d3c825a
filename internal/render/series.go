package render

import (
	"fmt"

	"github.com/loganbvh/ssm-analyze/internal/view"
)

// LineSeries picks the single trace a line-only backend can draw: the 1D
// data itself, or the slice when the snapshot is 2D. A 2D snapshot
// without a slice is an error.
func LineSeries(snap *view.Snapshot) (xs, ys []float64, xLabel, yLabel, title string, err error) {
	if !snap.Is2D {
		xLabel = AxisLabel(snap.X.Name, snap.X.Unit.String())
		yLabel = AxisLabel(snap.Y.Name, snap.Y.Unit.String())
		return snap.X.Values, snap.Y.Values, xLabel, yLabel, snap.Y.Name, nil
	}
	if s := snap.Slice; s != nil {
		xLabel = AxisLabel(s.Coords.Name, s.Coords.Unit.String())
		yLabel = AxisLabel(s.Values.Name, s.Values.Unit.String())
		title = fmt.Sprintf("%s @ index %d", s.Values.Name, s.Index)
		return s.Coords.Values, s.Values.Values, xLabel, yLabel, title, nil
	}
	return nil, nil, "", "", "", fmt.Errorf("gnuplot backend cannot draw 2D grids, render %s as PNG or take a slice", snap.Title)
}
