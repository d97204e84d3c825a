package transform

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestParseReduction(t *testing.T) {
	tests := []struct {
		in      string
		want    Reduction
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"min", Min, false},
		{"max", Max, false},
		{"mean", Mean, false},
		{"median", Median, false},
		{"linear", Linear, false},
		{"quadratic", None, true},
		{"MIN", None, true},
	}
	for _, tt := range tests {
		got, err := ParseReduction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseReduction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseReduction(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReductionStringRoundTrip(t *testing.T) {
	for _, r := range []Reduction{None, Min, Max, Mean, Median, Linear} {
		got, err := ParseReduction(r.String())
		if err != nil {
			t.Errorf("ParseReduction(%q) error: %v", r.String(), err)
			continue
		}
		if got != r {
			t.Errorf("ParseReduction(%q) = %v, want %v", r.String(), got, r)
		}
	}
}

func TestSubtract1DScalarReductions(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 2, math.NaN(), 4, 5}

	tests := []struct {
		name string
		r    Reduction
		want []float64 // NaN positions stay NaN
	}{
		{"none", None, []float64{1, 2, math.NaN(), 4, 5}},
		{"min", Min, []float64{0, 1, math.NaN(), 3, 4}},
		{"max", Max, []float64{-4, -3, math.NaN(), -1, 0}},
		{"mean", Mean, []float64{-2, -1, math.NaN(), 1, 2}},
		{"median", Median, []float64{-2, -1, math.NaN(), 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtract1D(tt.r, x, y)
			for i := range tt.want {
				if math.IsNaN(tt.want[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("got[%d] = %v, want NaN", i, got[i])
					}
					continue
				}
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSubtract1DMeanSumsToZero(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6}
	y := []float64{3.7, -1.2, 9.9, 0.4, 5.5, -2.2, 7.1}
	got := Subtract1D(Mean, x, y)
	if sum := floats.Sum(got); math.Abs(sum) > 1e-9 {
		t.Errorf("sum after mean subtraction = %g, want ~0", sum)
	}
}

func TestSubtract1DLinearRemovesSlope(t *testing.T) {
	x := []float64{0, 0.5, 1, 1.5, 2, 2.5, 3}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 4.2 - 1.7*xi + 0.3*math.Sin(5*xi)
	}
	got := Subtract1D(Linear, x, y)
	_, slope, ok := FitLine(x, got)
	if !ok {
		t.Fatal("FitLine on residual failed")
	}
	if math.Abs(slope) > 1e-9 {
		t.Errorf("residual slope = %g, want ~0", slope)
	}
}

func TestSubtract1DAllNonFinite(t *testing.T) {
	x := []float64{0, 1}
	y := []float64{math.NaN(), math.Inf(1)}
	got := Subtract1D(Mean, x, y)
	if !math.IsNaN(got[0]) || !math.IsInf(got[1], 1) {
		t.Errorf("all-non-finite input changed: %v", got)
	}
}

func TestSubtract1DDoesNotMutate(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{5, 6, 7}
	Subtract1D(Mean, x, y)
	Subtract1D(Linear, x, y)
	if y[0] != 5 || y[1] != 6 || y[2] != 7 {
		t.Errorf("input mutated: %v", y)
	}
}

func TestSubtractGridScalar(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 1}
	z := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, math.NaN(),
	})
	got := SubtractGrid(Min, x, y, z)
	want := []float64{0, 1, 2, 3, 4, math.NaN()}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			w := want[i*3+j]
			g := got.At(i, j)
			if math.IsNaN(w) {
				if !math.IsNaN(g) {
					t.Errorf("got[%d,%d] = %v, want NaN", i, j, g)
				}
				continue
			}
			if math.Abs(g-w) > 1e-12 {
				t.Errorf("got[%d,%d] = %v, want %v", i, j, g, w)
			}
		}
	}
	if z.At(0, 0) != 1 {
		t.Errorf("input grid mutated")
	}
}

func TestSubtractGridLinearRemovesPlane(t *testing.T) {
	x := []float64{-1, 0, 1, 2}
	y := []float64{0, 2, 4}
	z := mat.NewDense(3, 4, nil)
	for i, yi := range y {
		for j, xj := range x {
			z.Set(i, j, 1.5+2*xj-0.75*yi)
		}
	}
	got := SubtractGrid(Linear, x, y, z)
	rows, cols := got.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(got.At(i, j)) > 1e-9 {
				t.Errorf("residual[%d,%d] = %g, want ~0", i, j, got.At(i, j))
			}
		}
	}
}

func TestSubtractLineByLineRows(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 1}
	z := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		10, 20, 30,
	})
	got := SubtractLineByLine(Min, x, y, z, AxisX)
	want := [][]float64{
		{0, 1, 2},
		{0, 10, 20},
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(got.At(i, j)-want[i][j]) > 1e-12 {
				t.Errorf("got[%d,%d] = %v, want %v", i, j, got.At(i, j), want[i][j])
			}
		}
	}
}

func TestSubtractLineByLineColumnsLinear(t *testing.T) {
	// Each column is exactly linear in y, with y deliberately non-uniform,
	// so per-column linear subtraction should zero the grid.
	x := []float64{0, 1}
	y := []float64{0, 1, 3, 7}
	z := mat.NewDense(4, 2, nil)
	for i, yi := range y {
		for j := range x {
			z.Set(i, j, float64(j)+2.5*yi)
		}
	}
	got := SubtractLineByLine(Linear, x, y, z, AxisY)
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(got.At(i, j)) > 1e-9 {
				t.Errorf("residual[%d,%d] = %g, want ~0", i, j, got.At(i, j))
			}
		}
	}
}

func TestFiniteFilters(t *testing.T) {
	in := []float64{1, math.NaN(), 2, math.Inf(1), 3, math.Inf(-1)}
	got := Finite(in)
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Finite() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Finite()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
