// Package view builds plot snapshots. A snapshot is the fully transformed
// state of one dataset array: coordinates and values after loop-direction
// flips, unit conversion, background subtraction, rotation, and slice
// extraction. Renderers, chart handlers, and exporters all consume
// snapshots rather than touching datasets directly.
package view

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/transform"
	"github.com/loganbvh/ssm-analyze/internal/units"
)

// DefaultBins is the histogram bin count used when a request leaves it 0.
const DefaultBins = 100

// Background selects the subtraction applied before display.
type Background struct {
	Reduction  transform.Reduction
	LineByLine bool
	Axis       transform.Axis
}

// SliceSpec selects a 1D cut through a 2D array.
type SliceSpec struct {
	Enabled bool
	Axis    transform.Axis
	Index   int
}

// Request describes one plot to build. Zero values mean: first dependent
// array, no subtraction, no rotation, no slice, native units, default bins.
type Request struct {
	Array       string
	Background  Background
	RotateDeg   float64
	Slice       SliceSpec
	DisplayUnit string
	XYUnit      string
	Bins        int
	Colormap    string
}

// SliceData is an extracted cut with its converted coordinates.
type SliceData struct {
	Axis   transform.Axis
	Index  int
	Coords dataset.DataItem
	Values dataset.DataItem
}

// HistogramData is the distribution of the plotted values.
type HistogramData struct {
	Edges  []float64
	Counts []float64
	Unit   units.Unit
}

// Snapshot is the transformed view of one array, ready to render or
// export. For 1D data Y holds the dependent values; for 2D data Y holds
// the y coordinates and Z the grid. Rotation fills introduced cells with
// NaN; renderers choose their own substitute for non-finite cells.
type Snapshot struct {
	Title    string
	Location string
	Kind     string
	Is2D     bool

	X dataset.DataItem
	Y dataset.DataItem
	Z *dataset.GridItem

	Slice     *SliceData
	Histogram *HistogramData

	// Effective units after conversion fallback, for callers that echo
	// them back into unit fields.
	DisplayUnit string
	XYUnit      string

	Colormap string
	Bins     int
}

// Build assembles the snapshot for req against a loaded dataset.
func Build(ds *dataset.Dataset, req Request) (*Snapshot, error) {
	name := req.Array
	if name == "" {
		dep := ds.DependentVars()
		if len(dep) == 0 {
			return nil, fmt.Errorf("dataset %s has no dependent arrays", ds.Location)
		}
		name = dep[0]
	}
	if !ds.Has(name) {
		return nil, fmt.Errorf("no array %q in %s", name, ds.Location)
	}
	for _, indep := range ds.IndependentVars() {
		if name == indep {
			return nil, fmt.Errorf("array %q is a coordinate, pick a dependent array", name)
		}
	}

	bins := req.Bins
	if bins == 0 {
		bins = DefaultBins
	}
	bins = transform.ClampBins(bins)

	info, ok := ds.Arrays[name]
	if !ok {
		return nil, fmt.Errorf("no array %q in %s", name, ds.Location)
	}
	snap := &Snapshot{
		Title:    fmt.Sprintf("%s [%s]", ds.Location, name),
		Location: ds.Location,
		Kind:     ds.Kind,
		Colormap: req.Colormap,
		Bins:     bins,
	}
	if len(info.Shape) == 2 {
		if err := build2D(ds, name, req, snap); err != nil {
			return nil, err
		}
	} else {
		if err := build1D(ds, name, req, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// build1D plots a dependent 1D array against the first coordinate array.
// Rotation and slicing do not apply to 1D data and are ignored, matching
// the controls that disable them.
func build1D(ds *dataset.Dataset, name string, req Request, snap *Snapshot) error {
	xName := ds.IndependentVars()[0]
	x, err := ds.Item(xName)
	if err != nil {
		return fmt.Errorf("coordinate %q: %w", xName, err)
	}
	y, err := ds.Item(name)
	if err != nil {
		return err
	}
	if len(x.Values) != len(y.Values) {
		return fmt.Errorf("array %q has %d values but coordinate %q has %d",
			name, len(y.Values), xName, len(x.Values))
	}

	x.Values, x.Unit = convertValues(x.Values, x.Unit, req.XYUnit)
	y.Values, y.Unit = convertValues(y.Values, y.Unit, req.DisplayUnit)

	y.Values = transform.Subtract1D(req.Background.Reduction, x.Values, y.Values)

	snap.Is2D = false
	snap.X = x
	snap.Y = y
	snap.DisplayUnit = y.Unit.String()
	snap.XYUnit = x.Unit.String()
	snap.Histogram = histogram(y.Values, snap.Bins, y.Unit)
	return nil
}

// build2D plots a dependent 2D array against the x and y coordinates.
func build2D(ds *dataset.Dataset, name string, req Request, snap *Snapshot) error {
	indep := ds.IndependentVars()
	if len(indep) < 2 {
		return fmt.Errorf("dataset %s kind %q has no 2D coordinates", ds.Location, ds.Kind)
	}
	x, err := ds.Item(indep[0])
	if err != nil {
		return fmt.Errorf("coordinate %q: %w", indep[0], err)
	}
	y, err := ds.Item(indep[1])
	if err != nil {
		return fmt.Errorf("coordinate %q: %w", indep[1], err)
	}
	grid, err := ds.Grid(name)
	if err != nil {
		return err
	}
	rows, cols := grid.Z.Dims()
	if len(x.Values) != cols || len(y.Values) != rows {
		return fmt.Errorf("array %q is %dx%d but coordinates are x=%d, y=%d",
			name, rows, cols, len(x.Values), len(y.Values))
	}

	z := grid.Z
	// A negative sweep direction means the grid is stored mirrored along
	// that axis; restore the ascending-coordinate orientation.
	if ds.Loop.Direction.X == "neg" {
		z = transform.FlipLR(z)
	}
	if ds.Loop.Direction.Y == "neg" {
		z = transform.FlipUD(z)
	}

	x.Values, x.Unit = convertValues(x.Values, x.Unit, req.XYUnit)
	y.Values, y.Unit = convertValues(y.Values, y.Unit, req.XYUnit)
	z, zUnit := convertGrid(z, grid.Unit, req.DisplayUnit)

	bg := req.Background
	if bg.LineByLine {
		z = transform.SubtractLineByLine(bg.Reduction, x.Values, y.Values, z, bg.Axis)
	} else {
		z = transform.SubtractGrid(bg.Reduction, x.Values, y.Values, z)
	}

	if req.RotateDeg != 0 {
		z = transform.Rotate(z, req.RotateDeg, transform.FillNaN)
		x.Values, y.Values = transform.RotatedAxes(x.Values, y.Values, z)
	}

	snap.Is2D = true
	snap.X = x
	snap.Y = y
	snap.Z = &dataset.GridItem{Name: name, Unit: zUnit, Z: z}
	snap.DisplayUnit = zUnit.String()
	snap.XYUnit = x.Unit.String()
	snap.Histogram = histogram(transform.GridValues(z), snap.Bins, zUnit)

	if req.Slice.Enabled {
		coords, values, idx := transform.Slice(x.Values, y.Values, z, req.Slice.Axis, req.Slice.Index)
		coordItem := dataset.DataItem{Name: indep[0], Unit: x.Unit, Values: coords}
		if req.Slice.Axis == transform.AxisY {
			coordItem.Name = indep[1]
		}
		snap.Slice = &SliceData{
			Axis:   req.Slice.Axis,
			Index:  idx,
			Coords: coordItem,
			Values: dataset.DataItem{Name: name, Unit: zUnit, Values: values},
		}
	}
	return nil
}

// convertValues converts values to the requested unit. When the request
// is empty or the conversion fails, the native values and unit are kept.
func convertValues(values []float64, native units.Unit, requested string) ([]float64, units.Unit) {
	if requested == "" {
		return values, native
	}
	target := units.Parse(requested)
	out, err := units.Convert(values, native, target)
	if err != nil {
		return values, native
	}
	return out, target
}

// convertGrid is convertValues for grids.
func convertGrid(z *mat.Dense, native units.Unit, requested string) (*mat.Dense, units.Unit) {
	if requested == "" {
		return z, native
	}
	target := units.Parse(requested)
	f, err := units.Factor(native, target)
	if err != nil {
		return z, native
	}
	out := mat.DenseCopyOf(z)
	out.Scale(f, out)
	return out, target
}

func histogram(values []float64, bins int, u units.Unit) *HistogramData {
	edges, counts := transform.Histogram(values, bins)
	if edges == nil {
		return nil
	}
	return &HistogramData{Edges: edges, Counts: counts, Unit: u}
}
