package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/httputil"
	"github.com/loganbvh/ssm-analyze/internal/render"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// maxChartCells bounds the number of points handed to the browser for
// 2D data; larger grids are downsampled by stride.
const maxChartCells = 8000

func chartAxisLabel(it dataset.DataItem) string {
	if u := it.Unit.String(); u != "" {
		return fmt.Sprintf("%s [%s]", it.Name, u)
	}
	return it.Name
}

// serveCharts renders the snapshot as a self-contained HTML page of
// echarts figures: the main profile or grid, plus slice and histogram
// charts when present.
func (s *Server) serveCharts(w http.ResponseWriter, snap *view.Snapshot) {
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)

	if snap.Is2D {
		page.AddCharts(gridChart(snap))
	} else {
		page.AddCharts(profileChart(snap.Title, snap.X, snap.Y))
	}
	if sl := snap.Slice; sl != nil {
		title := fmt.Sprintf("%s @ index %d", snap.Title, sl.Index)
		page.AddCharts(profileChart(title, sl.Coords, sl.Values))
	}
	if snap.Histogram != nil {
		page.AddCharts(histogramChart(snap))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func profileChart(title string, x, y dataset.DataItem) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(x.Values))
	for i := range x.Values {
		if i >= len(y.Values) {
			break
		}
		if !isFinitePair(x.Values[i], y.Values[i]) {
			continue
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x.Values[i], y.Values[i]}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: chartAxisLabel(x), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: chartAxisLabel(y), NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries(y.Name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	return scatter
}

// gridChart draws the 2D grid as a colored scatter with a continuous
// visual map. Non-finite cells are dropped rather than substituted.
func gridChart(snap *view.Snapshot) *charts.Scatter {
	rows, cols := snap.Z.Z.Dims()

	stride := 1
	if rows*cols > maxChartCells {
		stride = int(math.Ceil(float64(rows*cols) / float64(maxChartCells)))
	}

	data := make([]opts.ScatterData, 0, rows*cols/stride+1)
	zMin, zMax := math.Inf(1), math.Inf(-1)
	for k := 0; k < rows*cols; k += stride {
		i, j := k/cols, k%cols
		v := snap.Z.Z.At(i, j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < zMin {
			zMin = v
		}
		if v > zMax {
			zMax = v
		}
		data = append(data, opts.ScatterData{Value: []interface{}{coordAt(snap.X.Values, j), coordAt(snap.Y.Values, i), v}})
	}
	if zMin > zMax {
		zMin, zMax = 0, 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: snap.Title, Theme: "dark", Width: "900px", Height: "700px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: snap.Title, Subtitle: fmt.Sprintf("cells=%d stride=%d", len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: chartAxisLabel(snap.X), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: chartAxisLabel(snap.Y), NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(zMin),
			Max:        float32(zMax),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: render.ByName(snap.Colormap).HexStops()},
		}),
	)
	scatter.AddSeries(snap.Z.Name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}

func histogramChart(snap *view.Snapshot) *charts.Bar {
	h := snap.Histogram

	x := make([]string, 0, len(h.Counts))
	y := make([]opts.BarData, 0, len(h.Counts))
	for i, c := range h.Counts {
		center := (h.Edges[i] + h.Edges[i+1]) / 2
		x = append(x, strconv.FormatFloat(center, 'g', 4, 64))
		y = append(y, opts.BarData{Value: c})
	}

	unit := h.Unit.String()
	name := "value"
	if unit != "" {
		name = fmt.Sprintf("value [%s]", unit)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s distribution", snap.Title), Subtitle: fmt.Sprintf("bins=%d", len(h.Counts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: name, NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).AddSeries("counts", y)
	return bar
}

func coordAt(vs []float64, i int) float64 {
	if i < len(vs) {
		return vs[i]
	}
	return float64(i)
}

func isFinitePair(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(y) && !math.IsInf(y, 0)
}
