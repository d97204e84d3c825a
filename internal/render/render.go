// Package render turns view snapshots into figures. PNG output goes
// through gonum/plot; an alternative gnuplot backend lives in the
// gnuplot subpackage so that only binaries which spawn gnuplot depend
// on it.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/loganbvh/ssm-analyze/internal/transform"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

// sliceMarker is the color of the line marking the slice position on a
// heatmap, matching the movable cursor of the interactive viewer.
var sliceMarker = color.NRGBA{R: 255, G: 255, B: 0, A: 255}

// WritePNG renders the snapshot's main figure: a heatmap for 2D data,
// scatter+line for 1D.
func WritePNG(w io.Writer, snap *view.Snapshot) error {
	p, err := mainFigure(snap)
	if err != nil {
		return err
	}
	return writePlot(w, p, 10*vg.Inch, 7*vg.Inch)
}

// WriteSlicePNG renders the extracted cut as its own figure.
func WriteSlicePNG(w io.Writer, snap *view.Snapshot) error {
	if snap.Slice == nil {
		return fmt.Errorf("snapshot of %s has no slice", snap.Location)
	}
	s := snap.Slice
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s @ index %d", snap.Title, s.Index)
	p.X.Label.Text = AxisLabel(s.Coords.Name, s.Coords.Unit.String())
	p.Y.Label.Text = AxisLabel(s.Values.Name, s.Values.Unit.String())
	if err := addSeries(p, s.Coords.Values, s.Values.Values); err != nil {
		return err
	}
	return writePlot(w, p, 10*vg.Inch, 6*vg.Inch)
}

// WriteHistogramPNG renders the value distribution as a staircase.
func WriteHistogramPNG(w io.Writer, snap *view.Snapshot) error {
	if snap.Histogram == nil {
		return fmt.Errorf("snapshot of %s has no histogram", snap.Location)
	}
	h := snap.Histogram
	p := plot.New()
	p.Title.Text = snap.Title + " histogram"
	p.X.Label.Text = AxisLabel("value", h.Unit.String())
	p.Y.Label.Text = "count"

	steps := make(plotter.XYs, 0, 2*len(h.Counts))
	for i, c := range h.Counts {
		steps = append(steps,
			plotter.XY{X: h.Edges[i], Y: c},
			plotter.XY{X: h.Edges[i+1], Y: c})
	}
	line, err := plotter.NewLine(steps)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	return writePlot(w, p, 10*vg.Inch, 6*vg.Inch)
}

// Files writes one PNG per figure into dir, named after the plotted
// array, and reports how many files it produced.
func Files(dir string, snap *view.Snapshot) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}
	base := snap.Y.Name
	if snap.Is2D {
		base = snap.Z.Name
	}

	count := 0
	write := func(name string, fn func(io.Writer, *view.Snapshot) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := fn(f, snap); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		count++
		return nil
	}

	if err := write(base+".png", WritePNG); err != nil {
		return count, err
	}
	if snap.Slice != nil {
		if err := write(base+"_slice.png", WriteSlicePNG); err != nil {
			return count, err
		}
	}
	if snap.Histogram != nil {
		if err := write(base+"_hist.png", WriteHistogramPNG); err != nil {
			return count, err
		}
	}
	return count, nil
}

func mainFigure(snap *view.Snapshot) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = snap.Title
	p.X.Label.Text = AxisLabel(snap.X.Name, snap.X.Unit.String())

	if !snap.Is2D {
		p.Y.Label.Text = AxisLabel(snap.Y.Name, snap.Y.Unit.String())
		if err := addSeries(p, snap.X.Values, snap.Y.Values); err != nil {
			return nil, err
		}
		return p, nil
	}

	p.Y.Label.Text = AxisLabel(snap.Y.Name, snap.Y.Unit.String())
	grid := newHeatGrid(snap.X.Values, snap.Y.Values, snap.Z.Z)
	hm := plotter.NewHeatMap(grid, ByName(snap.Colormap))
	p.Add(hm)

	if s := snap.Slice; s != nil {
		marker, err := sliceLine(snap, s)
		if err != nil {
			return nil, err
		}
		p.Add(marker)
	}
	return p, nil
}

// sliceLine builds the cursor marking where the cut runs through the grid.
func sliceLine(snap *view.Snapshot, s *view.SliceData) (*plotter.Line, error) {
	var pts plotter.XYs
	if s.Axis == transform.AxisX {
		y := snap.Y.Values[clampIndex(s.Index, len(snap.Y.Values))]
		pts = plotter.XYs{
			{X: snap.X.Values[0], Y: y},
			{X: snap.X.Values[len(snap.X.Values)-1], Y: y},
		}
	} else {
		x := snap.X.Values[clampIndex(s.Index, len(snap.X.Values))]
		pts = plotter.XYs{
			{X: x, Y: snap.Y.Values[0]},
			{X: x, Y: snap.Y.Values[len(snap.Y.Values)-1]},
		}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = sliceMarker
	line.Width = vg.Points(1)
	return line, nil
}

// addSeries plots finite (x, y) pairs as a line with point markers.
func addSeries(p *plot.Plot, xs, ys []float64) error {
	pts := make(plotter.XYs, 0, len(ys))
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	for i := 0; i < n; i++ {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(line, scatter)
	return nil
}

func writePlot(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// AxisLabel formats an axis caption from an array name and unit symbol.
func AxisLabel(name, unit string) string {
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, unit)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// heatGrid adapts a snapshot grid to plotter.GridXYZ. Non-finite cells
// read back as the finite minimum so rotation fill does not blank the
// color scale, the substitution the image view makes.
type heatGrid struct {
	xs, ys []float64
	z      *mat.Dense
	min    float64
}

func newHeatGrid(xs, ys []float64, z *mat.Dense) *heatGrid {
	min := math.Inf(1)
	rows, cols := z.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := z.At(i, j); isFinite(v) && v < min {
				min = v
			}
		}
	}
	if math.IsInf(min, 1) {
		min = 0
	}
	return &heatGrid{xs: xs, ys: ys, z: z, min: min}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (g *heatGrid) Dims() (c, r int) {
	rows, cols := g.z.Dims()
	return cols, rows
}

func (g *heatGrid) Z(c, r int) float64 {
	v := g.z.At(r, c)
	if !isFinite(v) {
		return g.min
	}
	return v
}

func (g *heatGrid) X(c int) float64 { return g.xs[c] }
func (g *heatGrid) Y(r int) float64 { return g.ys[r] }
