package transform

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitLine fits y = a + b*x by ordinary least squares over the pairs where
// both coordinates are finite. ok is false when fewer than two such pairs
// exist or the fit is degenerate (for example, all x equal).
func FitLine(x, y []float64) (a, b float64, ok bool) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	fx := make([]float64, 0, n)
	fy := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if isFinite(x[i]) && isFinite(y[i]) {
			fx = append(fx, x[i])
			fy = append(fy, y[i])
		}
	}
	if len(fx) < 2 {
		return 0, 0, false
	}
	a, b = stat.LinearRegression(fx, fy, nil, false)
	if !isFinite(a) || !isFinite(b) {
		return 0, 0, false
	}
	return a, b, true
}

// FitPlane fits z = c0 + cx*X + cy*Y by least squares, where X and Y are
// the meshgrid of the x (per column) and y (per row) coordinate vectors.
// Cells with a non-finite value or coordinate are excluded. ok is false
// when fewer than three cells remain or the system is rank deficient.
func FitPlane(x, y []float64, z *mat.Dense) (c0, cx, cy float64, ok bool) {
	rows, cols := z.Dims()
	if len(x) < cols || len(y) < rows {
		return 0, 0, 0, false
	}
	var aData []float64
	var bData []float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := z.At(i, j)
			if !isFinite(v) || !isFinite(x[j]) || !isFinite(y[i]) {
				continue
			}
			aData = append(aData, 1, x[j], y[i])
			bData = append(bData, v)
		}
	}
	if len(bData) < 3 {
		return 0, 0, 0, false
	}
	a := mat.NewDense(len(bData), 3, aData)
	b := mat.NewVecDense(len(bData), bData)
	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return 0, 0, 0, false
	}
	c0, cx, cy = sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	if !isFinite(c0) || !isFinite(cx) || !isFinite(cy) {
		return 0, 0, 0, false
	}
	return c0, cx, cy, true
}
