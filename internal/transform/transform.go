// Package transform implements the numeric transforms applied to plotted
// arrays: background subtraction (scalar reductions and least-squares
// line/plane removal, globally or line by line), rotation about the grid
// center, slice extraction, axis flips, and histogramming. All functions
// treat non-finite values as missing and never modify their inputs.
package transform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reduction selects the background model removed from plotted data.
type Reduction int

// Supported background reductions.
const (
	None Reduction = iota
	Min
	Max
	Mean
	Median
	Linear
)

var reductionNames = map[Reduction]string{
	None:   "none",
	Min:    "min",
	Max:    "max",
	Mean:   "mean",
	Median: "median",
	Linear: "linear",
}

// String returns the lower-case name of the reduction.
func (r Reduction) String() string {
	if s, ok := reductionNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reduction(%d)", int(r))
}

// ParseReduction parses a reduction name. An empty string means None.
func ParseReduction(s string) (Reduction, error) {
	if s == "" {
		return None, nil
	}
	for r, name := range reductionNames {
		if s == name {
			return r, nil
		}
	}
	return None, fmt.Errorf("unknown reduction %q", s)
}

// Axis identifies the direction of a line-by-line subtraction or a slice.
// AxisX walks rows (cuts along the x coordinates), AxisY walks columns.
type Axis int

// Axis values.
const (
	AxisX Axis = iota
	AxisY
)

// String returns "x" or "y".
func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// ParseAxis parses "x" or "y". An empty string means AxisX.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "", "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	}
	return AxisX, fmt.Errorf("unknown axis %q", s)
}

// Subtract1D returns a copy of y with the reduction removed. Linear removes
// the least-squares best-fit line against x; the other reductions remove a
// scalar computed over the finite values of y. When the reduction cannot be
// computed (no finite values, or too few points to fit) the copy is
// returned unchanged.
func Subtract1D(r Reduction, x, y []float64) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	switch r {
	case None:
		return out
	case Linear:
		a, b, ok := FitLine(x, y)
		if !ok {
			return out
		}
		for i := range out {
			out[i] -= a + b*x[i]
		}
	default:
		c, ok := reduceScalar(r, y)
		if !ok {
			return out
		}
		for i := range out {
			out[i] -= c
		}
	}
	return out
}

// SubtractGrid returns a copy of z with the reduction removed globally.
// Linear removes the least-squares best-fit plane over the x (per column)
// and y (per row) coordinate vectors; the other reductions remove a scalar
// computed over all finite cells.
func SubtractGrid(r Reduction, x, y []float64, z *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(z)
	if r == None {
		return out
	}
	rows, cols := out.Dims()
	if r == Linear {
		c0, cx, cy, ok := FitPlane(x, y, z)
		if !ok {
			return out
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, out.At(i, j)-(c0+cx*x[j]+cy*y[i]))
			}
		}
		return out
	}
	c, ok := reduceScalar(r, GridValues(z))
	if !ok {
		return out
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, out.At(i, j)-c)
		}
	}
	return out
}

// SubtractLineByLine returns a copy of z with the reduction removed from
// each row (AxisX) or each column (AxisY) independently. Linear fits each
// line against its own coordinate vector: x for rows, y for columns.
func SubtractLineByLine(r Reduction, x, y []float64, z *mat.Dense, axis Axis) *mat.Dense {
	out := mat.DenseCopyOf(z)
	if r == None {
		return out
	}
	rows, cols := out.Dims()
	if axis == AxisX {
		for i := 0; i < rows; i++ {
			line := mat.Row(nil, i, out)
			out.SetRow(i, Subtract1D(r, x, line))
		}
		return out
	}
	for j := 0; j < cols; j++ {
		line := mat.Col(nil, j, out)
		out.SetCol(j, Subtract1D(r, y, line))
	}
	return out
}

// reduceScalar computes the scalar reduction over the finite values of vs.
// ok is false when vs has no finite values or r has no scalar form.
func reduceScalar(r Reduction, vs []float64) (float64, bool) {
	fin := Finite(vs)
	if len(fin) == 0 {
		return 0, false
	}
	switch r {
	case Min:
		return floats.Min(fin), true
	case Max:
		return floats.Max(fin), true
	case Mean:
		return stat.Mean(fin, nil), true
	case Median:
		return median(fin), true
	}
	return 0, false
}

// median returns the median of vs. vs is sorted in place, so callers must
// pass a copy they own.
func median(vs []float64) float64 {
	sort.Float64s(vs)
	n := len(vs)
	if n%2 == 1 {
		return vs[n/2]
	}
	return (vs[n/2-1] + vs[n/2]) / 2
}

// Finite returns the finite values of vs in order, as a new slice.
func Finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GridValues flattens z into a new row-major slice.
func GridValues(z mat.Matrix) []float64 {
	rows, cols := z.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, z.At(i, j))
		}
	}
	return out
}
