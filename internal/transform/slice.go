package transform

import (
	"golang.org/x/exp/constraints"

	"gonum.org/v1/gonum/mat"
)

// Slice extracts a 1D cut through z. AxisX returns row index (values
// against the x coordinates); AxisY returns column index (values against
// the y coordinates). The index is clamped to the valid range and the
// clamped value is returned alongside the data.
func Slice(x, y []float64, z *mat.Dense, axis Axis, index int) (coords, values []float64, idx int) {
	rows, cols := z.Dims()
	if axis == AxisX {
		idx = clamp(index, 0, rows-1)
		values = mat.Row(nil, idx, z)
		coords = make([]float64, len(x))
		copy(coords, x)
		return coords, values, idx
	}
	idx = clamp(index, 0, cols-1)
	values = mat.Col(nil, idx, z)
	coords = make([]float64, len(y))
	copy(coords, y)
	return coords, values, idx
}

// Compact returns the (coord, value) pairs whose value is finite, in
// order, dropping the rest. Downstream statistics and fits see only the
// surviving pairs.
func Compact(coords, values []float64) (cx, cv []float64) {
	n := len(coords)
	if len(values) < n {
		n = len(values)
	}
	cx = make([]float64, 0, n)
	cv = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if isFinite(values[i]) {
			cx = append(cx, coords[i])
			cv = append(cv, values[i])
		}
	}
	return cx, cv
}

// FlipLR returns a copy of z with its columns reversed.
func FlipLR(z *mat.Dense) *mat.Dense {
	rows, cols := z.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, z.At(i, cols-1-j))
		}
	}
	return out
}

// FlipUD returns a copy of z with its rows reversed.
func FlipUD(z *mat.Dense) *mat.Dense {
	rows, cols := z.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, z.At(rows-1-i, j))
		}
	}
	return out
}

// Reverse returns a copy of v in reverse order.
func Reverse(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
