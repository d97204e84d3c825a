// Command ssm-plot renders one array of a dataset directory to a PNG
// file or a gnuplot session, applying the same transforms the HTTP API
// exposes.
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/render"
	"github.com/loganbvh/ssm-analyze/internal/render/gnuplot"
	"github.com/loganbvh/ssm-analyze/internal/transform"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

func buildRequest(array, backsub string, lineByLine bool, axisName string,
	rotate float64, sliceAxis string, index int, unit, xyUnit string,
	bins int, cmap string) (view.Request, error) {

	req := view.Request{
		Array:       array,
		RotateDeg:   rotate,
		DisplayUnit: unit,
		XYUnit:      xyUnit,
		Bins:        bins,
		Colormap:    cmap,
	}

	red, err := transform.ParseReduction(backsub)
	if err != nil {
		return req, err
	}
	req.Background.Reduction = red
	req.Background.LineByLine = lineByLine

	axis, err := transform.ParseAxis(axisName)
	if err != nil {
		return req, err
	}
	req.Background.Axis = axis

	if sliceAxis != "" {
		sax, err := transform.ParseAxis(sliceAxis)
		if err != nil {
			return req, err
		}
		req.Slice = view.SliceSpec{Enabled: true, Axis: sax, Index: index}
	}
	return req, nil
}

func main() {
	dir := flag.String("dataset", "", "Dataset directory (required)")
	array := flag.String("array", "", "Array to plot (default: first dependent array)")
	backsub := flag.String("backsub", "none", "Background subtraction: none, min, max, mean, median, linear")
	lineByLine := flag.Bool("linebyline", false, "Subtract per row/column instead of globally")
	axisName := flag.String("axis", "x", "Line-by-line axis: x or y")
	rotate := flag.Float64("rotate", 0, "Rotate 2D data by the given degrees about its center")
	sliceAxis := flag.String("slice", "", "Extract a cut along the given axis: x or y")
	index := flag.Int("index", 0, "Slice index")
	unit := flag.String("unit", "", "Display unit for the plotted array")
	xyUnit := flag.String("xyunit", "", "Display unit for the coordinates")
	bins := flag.Int("bins", 0, "Histogram bins")
	cmap := flag.String("cmap", render.DefaultColormap, "Colormap: "+strings.Join(render.Names(), ", "))
	renderer := flag.String("renderer", "gonum", "Renderer: gonum or gnuplot")
	output := flag.String("o", "", "Output PNG path (default <array>.png; empty with -renderer=gnuplot opens a window)")
	all := flag.Bool("all", false, "Write main, slice, and histogram figures into the -o directory")
	flag.Parse()

	if *dir == "" {
		log.Fatal("missing required -dataset directory")
	}

	ds, err := dataset.Load(*dir)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	req, err := buildRequest(*array, *backsub, *lineByLine, *axisName,
		*rotate, *sliceAxis, *index, *unit, *xyUnit, *bins, *cmap)
	if err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	snap, err := view.Build(ds, req)
	if err != nil {
		log.Fatalf("failed to build view: %v", err)
	}

	switch *renderer {
	case "gnuplot":
		if err := gnuplot.Plot(*output, snap); err != nil {
			log.Fatalf("gnuplot render failed: %v", err)
		}
		if *output != "" {
			log.Printf("wrote %s", *output)
		}

	case "gonum":
		if *all {
			outDir := *output
			if outDir == "" {
				outDir = "."
			}
			n, err := render.Files(outDir, snap)
			if err != nil {
				log.Fatalf("render failed: %v", err)
			}
			log.Printf("wrote %d figures to %s", n, outDir)
			return
		}

		path := *output
		if path == "" {
			name := snap.Y.Name
			if snap.Is2D {
				name = snap.Z.Name
			}
			path = name + ".png"
		}
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("failed to create %s: %v", path, err)
		}
		if err := render.WritePNG(f, snap); err != nil {
			f.Close()
			log.Fatalf("render failed: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		log.Printf("wrote %s", path)

	default:
		log.Fatalf("unknown renderer %q, want gonum or gnuplot", *renderer)
	}
}
