// Package gnuplot drives a gnuplot session through glot. Importing glot
// aborts the process when no gnuplot binary is installed, so only
// commands that actually spawn gnuplot may depend on this package; the
// HTTP server must not.
package gnuplot

import (
	"fmt"
	"math"

	"github.com/Arafatk/glot"

	"github.com/loganbvh/ssm-analyze/internal/render"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

// Plot draws the snapshot's line series in a gnuplot session. Only 1D
// data and slices fit this backend; full 2D grids need the PNG renderer.
// When path is empty the session stays interactive (persist), otherwise
// the figure is written to path and the session closed.
func Plot(path string, snap *view.Snapshot) error {
	xs, ys, xLabel, yLabel, title, err := render.LineSeries(snap)
	if err != nil {
		return err
	}

	persist := path == ""
	p, err := glot.NewPlot(2, persist, false)
	if err != nil {
		return fmt.Errorf("start gnuplot: %w", err)
	}

	fx, fy := finitePairs(xs, ys)
	if err := p.AddPointGroup(title, "points", [][]float64{fx, fy}); err != nil {
		return err
	}
	p.SetTitle(snap.Title)
	p.SetXLabel(xLabel)
	p.SetYLabel(yLabel)
	if path != "" {
		if err := p.SavePlot(path); err != nil {
			return fmt.Errorf("save gnuplot figure: %w", err)
		}
	}
	return nil
}

func finitePairs(xs, ys []float64) (fx, fy []float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	fx = make([]float64, 0, n)
	fy = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if finite(xs[i]) && finite(ys[i]) {
			fx = append(fx, xs[i])
			fy = append(fy, ys[i])
		}
	}
	return fx, fy
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
