package transform

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fill selects the value written to cells Rotate introduces outside the
// original data.
type Fill int

// Fill values.
const (
	// FillMin fills with the finite minimum of the input grid, keeping
	// image color scales useful.
	FillMin Fill = iota
	// FillNaN fills with NaN so introduced cells stay masked downstream.
	FillNaN
)

// Rotate rotates z counter-clockwise by angleDeg about its center, in the
// frame where columns increase along +x and rows along +y. The output grid
// expands to hold the rotated extent; introduced cells take the fill
// value. Interior cells are bilinearly interpolated, falling back to the
// nearest sample when a neighbor is non-finite so masked regions do not
// smear. Rotation by a multiple of 360 degrees returns an exact copy.
func Rotate(z *mat.Dense, angleDeg float64, fill Fill) *mat.Dense {
	rows, cols := z.Dims()
	theta := math.Mod(angleDeg*math.Pi/180, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	if theta < 1e-12 || 2*math.Pi-theta < 1e-12 {
		return mat.DenseCopyOf(z)
	}
	sin, cos := math.Sincos(theta)

	outRows := int(math.Round(math.Abs(float64(rows)*cos) + math.Abs(float64(cols)*sin)))
	outCols := int(math.Round(math.Abs(float64(cols)*cos) + math.Abs(float64(rows)*sin)))
	if outRows < 1 {
		outRows = 1
	}
	if outCols < 1 {
		outCols = 1
	}

	fv := math.NaN()
	if fill == FillMin {
		if fin := Finite(GridValues(z)); len(fin) > 0 {
			fv = floats.Min(fin)
		}
	}

	ci := float64(rows-1) / 2
	cj := float64(cols-1) / 2
	oci := float64(outRows-1) / 2
	ocj := float64(outCols-1) / 2

	const eps = 1e-9
	out := mat.NewDense(outRows, outCols, nil)
	for oi := 0; oi < outRows; oi++ {
		di := float64(oi) - oci
		for oj := 0; oj < outCols; oj++ {
			dj := float64(oj) - ocj
			// Inverse rotation of the centered output coordinate.
			si := ci + di*cos - dj*sin
			sj := cj + dj*cos + di*sin
			if si < -eps || si > float64(rows-1)+eps || sj < -eps || sj > float64(cols-1)+eps {
				out.Set(oi, oj, fv)
				continue
			}
			si = clamp(si, 0, float64(rows-1))
			sj = clamp(sj, 0, float64(cols-1))
			out.Set(oi, oj, sample(z, si, sj, rows, cols))
		}
	}
	return out
}

// sample bilinearly interpolates z at fractional indices (si, sj), using
// the nearest sample when any contributing neighbor is non-finite.
func sample(z *mat.Dense, si, sj float64, rows, cols int) float64 {
	i0 := int(math.Floor(si))
	j0 := int(math.Floor(sj))
	i1 := i0 + 1
	j1 := j0 + 1
	if i1 > rows-1 {
		i1 = rows - 1
	}
	if j1 > cols-1 {
		j1 = cols - 1
	}
	fi := si - float64(i0)
	fj := sj - float64(j0)

	z00 := z.At(i0, j0)
	z01 := z.At(i0, j1)
	z10 := z.At(i1, j0)
	z11 := z.At(i1, j1)
	if isFinite(z00) && isFinite(z01) && isFinite(z10) && isFinite(z11) {
		return z00*(1-fi)*(1-fj) + z01*(1-fi)*fj + z10*fi*(1-fj) + z11*fi*fj
	}
	return z.At(int(math.Round(si)), int(math.Round(sj)))
}

// RotatedAxes regenerates evenly spaced coordinate vectors spanning the
// original axis extents for a rotated grid's dimensions.
func RotatedAxes(x, y []float64, rotated *mat.Dense) (xs, ys []float64) {
	rows, cols := rotated.Dims()
	return spanVector(x, cols), spanVector(y, rows)
}

// spanVector returns n equally spaced points covering the finite extent
// of v. A single point lands at the center of the extent.
func spanVector(v []float64, n int) []float64 {
	out := make([]float64, n)
	fin := Finite(v)
	if len(fin) == 0 || n == 0 {
		return out
	}
	lo, hi := floats.Min(fin), floats.Max(fin)
	if n == 1 {
		out[0] = (lo + hi) / 2
		return out
	}
	return floats.Span(out, lo, hi)
}
