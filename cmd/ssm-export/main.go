// Command ssm-export writes one array of a dataset directory to a
// MATLAB, HDF5, NumPy, or gob file, applying the same transforms the
// HTTP API exposes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/export"
	"github.com/loganbvh/ssm-analyze/internal/transform"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

func main() {
	dir := flag.String("dataset", "", "Dataset directory (required)")
	array := flag.String("array", "", "Array to export (default: first dependent array)")
	backsub := flag.String("backsub", "none", "Background subtraction: none, min, max, mean, median, linear")
	lineByLine := flag.Bool("linebyline", false, "Subtract per row/column instead of globally")
	axisName := flag.String("axis", "x", "Line-by-line axis: x or y")
	rotate := flag.Float64("rotate", 0, "Rotate 2D data by the given degrees about its center")
	sliceAxis := flag.String("slice", "", "Extract a cut along the given axis: x or y")
	index := flag.Int("index", 0, "Slice index")
	unit := flag.String("unit", "", "Export unit for the array")
	xyUnit := flag.String("xyunit", "", "Export unit for the coordinates")
	format := flag.String("format", "mat", "Export format: "+strings.Join(export.Formats(), ", "))
	output := flag.String("o", "", "Output path (default <dataset>_<array>.<format>)")
	flag.Parse()

	if *dir == "" {
		log.Fatal("missing required -dataset directory")
	}
	if !validFormat(*format) {
		log.Fatalf("unknown format %q, want one of %s", *format, strings.Join(export.Formats(), ", "))
	}

	ds, err := dataset.Load(*dir)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	req := view.Request{
		Array:       *array,
		RotateDeg:   *rotate,
		DisplayUnit: *unit,
		XYUnit:      *xyUnit,
	}
	red, err := transform.ParseReduction(*backsub)
	if err != nil {
		log.Fatalf("invalid -backsub: %v", err)
	}
	req.Background.Reduction = red
	req.Background.LineByLine = *lineByLine
	axis, err := transform.ParseAxis(*axisName)
	if err != nil {
		log.Fatalf("invalid -axis: %v", err)
	}
	req.Background.Axis = axis
	if *sliceAxis != "" {
		sax, err := transform.ParseAxis(*sliceAxis)
		if err != nil {
			log.Fatalf("invalid -slice: %v", err)
		}
		req.Slice = view.SliceSpec{Enabled: true, Axis: sax, Index: *index}
	}

	snap, err := view.Build(ds, req)
	if err != nil {
		log.Fatalf("failed to build view: %v", err)
	}

	path := *output
	if path == "" {
		name := snap.Y.Name
		if snap.Is2D {
			name = snap.Z.Name
		}
		path = fmt.Sprintf("%s_%s.%s", filepath.Base(snap.Location), name, *format)
	}

	payload := export.BuildPayload(snap)
	if *format == "h5" {
		// The HDF5 library writes by filename, so skip the stream path.
		if err := export.WriteHDF5(path, payload); err != nil {
			log.Fatalf("export failed: %v", err)
		}
	} else {
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("failed to create %s: %v", path, err)
		}
		if err := export.Write(f, *format, payload); err != nil {
			f.Close()
			os.Remove(path)
			log.Fatalf("export failed: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
	}
	log.Printf("wrote %s", path)
}

func validFormat(format string) bool {
	for _, f := range export.Formats() {
		if f == format {
			return true
		}
	}
	return false
}
