// Package dataset loads measurement datasets from disk. A dataset is a
// directory holding a snapshot.json manifest plus one whitespace-separated
// numeric text file per named array; arrays carry a unit and a 1D or 2D
// shape. Datasets are read-only: accessors hand out copies.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/loganbvh/ssm-analyze/internal/units"
)

// DataItem is a named 1D array with its unit.
type DataItem struct {
	Name   string
	Unit   units.Unit
	Values []float64
}

// GridItem is a named 2D array with its unit.
type GridItem struct {
	Name string
	Unit units.Unit
	Z    *mat.Dense
}

// Dataset is a loaded dataset directory.
type Dataset struct {
	Dir string
	Manifest

	arrays map[string][]float64 // row-major payloads
	order  []string             // sorted array names
}

// Load reads the manifest and every declared array file under dir.
func Load(dir string) (*Dataset, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		Dir:      dir,
		Manifest: *m,
		arrays:   make(map[string][]float64, len(m.Arrays)),
	}
	for name, info := range m.Arrays {
		vals, err := ReadArrayFile(filepath.Join(dir, info.File))
		if err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
		want := 1
		for _, n := range info.Shape {
			want *= n
		}
		if len(vals) != want {
			return nil, fmt.Errorf("array %q: file %s has %d values, shape %v wants %d",
				name, info.File, len(vals), info.Shape, want)
		}
		ds.arrays[name] = vals
		ds.order = append(ds.order, name)
	}
	sort.Strings(ds.order)
	return ds, nil
}

// ArrayNames returns all array names in sorted order.
func (d *Dataset) ArrayNames() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// DependentVars returns the sorted array names that are not coordinates.
func (d *Dataset) DependentVars() []string {
	indep := make(map[string]bool)
	for _, n := range d.IndependentVars() {
		indep[n] = true
	}
	var out []string
	for _, n := range d.order {
		if !indep[n] {
			out = append(out, n)
		}
	}
	return out
}

// Has reports whether the dataset contains the named array.
func (d *Dataset) Has(name string) bool {
	_, ok := d.arrays[name]
	return ok
}

// Unit returns the parsed unit of the named array, or the arb unit when
// the array is unknown.
func (d *Dataset) Unit(name string) units.Unit {
	info, ok := d.Arrays[name]
	if !ok {
		return units.Parse("")
	}
	return units.Parse(info.Unit)
}

// Item returns the named 1D array. 2D arrays and unknown names are errors.
func (d *Dataset) Item(name string) (DataItem, error) {
	vals, ok := d.arrays[name]
	if !ok {
		return DataItem{}, fmt.Errorf("no array %q in %s", name, d.Location)
	}
	info := d.Arrays[name]
	if len(info.Shape) != 1 {
		return DataItem{}, fmt.Errorf("array %q has shape %v, want 1D", name, info.Shape)
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return DataItem{Name: name, Unit: units.Parse(info.Unit), Values: out}, nil
}

// Grid returns the named 2D array. 1D arrays and unknown names are errors.
func (d *Dataset) Grid(name string) (GridItem, error) {
	vals, ok := d.arrays[name]
	if !ok {
		return GridItem{}, fmt.Errorf("no array %q in %s", name, d.Location)
	}
	info := d.Arrays[name]
	if len(info.Shape) != 2 {
		return GridItem{}, fmt.Errorf("array %q has shape %v, want 2D", name, info.Shape)
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return GridItem{
		Name: name,
		Unit: units.Parse(info.Unit),
		Z:    mat.NewDense(info.Shape[0], info.Shape[1], out),
	}, nil
}

// ReadArrayFile parses a whitespace-separated numeric text file. Lines
// starting with # are comments. Values are returned in reading order;
// nan and inf tokens parse per strconv.ParseFloat.
func ReadArrayFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []float64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		for _, tok := range strings.Fields(text) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid value %q: %w", path, line, tok, err)
			}
			out = append(out, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no numeric data", path)
	}
	return out, nil
}
