package transform

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFitLineExact(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{2, 5, 8, 11} // y = 2 + 3x
	a, b, ok := FitLine(x, y)
	if !ok {
		t.Fatal("FitLine returned ok=false")
	}
	if math.Abs(a-2) > 1e-12 || math.Abs(b-3) > 1e-12 {
		t.Errorf("FitLine = (%g, %g), want (2, 3)", a, b)
	}
}

func TestFitLineIgnoresNonFinite(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, math.NaN(), 3, math.Inf(1), 5} // finite pairs lie on y = 1 + x
	a, b, ok := FitLine(x, y)
	if !ok {
		t.Fatal("FitLine returned ok=false")
	}
	if math.Abs(a-1) > 1e-12 || math.Abs(b-1) > 1e-12 {
		t.Errorf("FitLine = (%g, %g), want (1, 1)", a, b)
	}
}

func TestFitLineDegenerate(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		y    []float64
	}{
		{"too few points", []float64{1}, []float64{2}},
		{"all non-finite", []float64{0, 1}, []float64{math.NaN(), math.NaN()}},
		{"vertical line", []float64{2, 2, 2}, []float64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := FitLine(tt.x, tt.y); ok {
				t.Errorf("FitLine ok = true, want false")
			}
		})
	}
}

func TestFitPlaneExact(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{-1, 0, 1}
	z := mat.NewDense(3, 4, nil)
	for i, yi := range y {
		for j, xj := range x {
			z.Set(i, j, 0.5-2*xj+3*yi)
		}
	}
	c0, cx, cy, ok := FitPlane(x, y, z)
	if !ok {
		t.Fatal("FitPlane returned ok=false")
	}
	if math.Abs(c0-0.5) > 1e-9 || math.Abs(cx+2) > 1e-9 || math.Abs(cy-3) > 1e-9 {
		t.Errorf("FitPlane = (%g, %g, %g), want (0.5, -2, 3)", c0, cx, cy)
	}
}

func TestFitPlaneIgnoresNonFiniteCells(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 1, 2}
	z := mat.NewDense(3, 3, nil)
	for i, yi := range y {
		for j, xj := range x {
			z.Set(i, j, 1+xj+yi)
		}
	}
	z.Set(1, 1, math.NaN())
	z.Set(2, 0, math.Inf(1))
	c0, cx, cy, ok := FitPlane(x, y, z)
	if !ok {
		t.Fatal("FitPlane returned ok=false")
	}
	if math.Abs(c0-1) > 1e-9 || math.Abs(cx-1) > 1e-9 || math.Abs(cy-1) > 1e-9 {
		t.Errorf("FitPlane = (%g, %g, %g), want (1, 1, 1)", c0, cx, cy)
	}
}

func TestFitPlaneTooFewCells(t *testing.T) {
	x := []float64{0, 1}
	y := []float64{0}
	z := mat.NewDense(1, 2, []float64{1, math.NaN()})
	if _, _, _, ok := FitPlane(x, y, z); ok {
		t.Errorf("FitPlane ok = true, want false")
	}
}
