// Package export writes plot snapshots to interchange formats: MATLAB
// level-5 MAT-files, HDF5, NumPy .npz archives, and Go gob blobs. The
// payload mirrors what is on screen after all transforms.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/loganbvh/ssm-analyze/internal/view"
)

// Item is one named array of a payload. Values are row-major; Shape has
// one or two dimensions.
type Item struct {
	Name   string    `json:"name"`
	Unit   string    `json:"unit"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// Payload is the serializable form of a snapshot.
type Payload struct {
	Title      string `json:"title"`
	Items      []Item `json:"items"`
	SliceIndex *int   `json:"slice_index,omitempty"`
}

// BuildPayload flattens a snapshot into a format-independent payload.
func BuildPayload(snap *view.Snapshot) Payload {
	p := Payload{Title: snap.Title}
	for _, it := range snap.ExportItems() {
		item := Item{Name: it.Name, Unit: it.Unit}
		if it.Grid != nil {
			r, c := it.Grid.Dims()
			item.Shape = []int{r, c}
			item.Values = make([]float64, 0, r*c)
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					item.Values = append(item.Values, it.Grid.At(i, j))
				}
			}
		} else {
			item.Shape = []int{len(it.Values)}
			item.Values = append([]float64(nil), it.Values...)
		}
		p.Items = append(p.Items, item)
	}
	if idx, ok := snap.SliceIndex(); ok {
		p.SliceIndex = &idx
	}
	return p
}

// Formats lists the supported export format names.
func Formats() []string {
	return []string{"gob", "h5", "mat", "npz"}
}

// Export writes the snapshot to path in the format implied by its
// extension: .mat, .h5 (or .hdf5), .npz, or .gob.
func Export(path string, snap *view.Snapshot) error {
	p := BuildPayload(snap)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "hdf5" {
		ext = "h5"
	}
	if ext == "h5" {
		return WriteHDF5(path, p)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, ext, p); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

// Write streams the payload to w in the named format ("mat", "npz",
// "gob", or "h5"). HDF5 goes through a temporary file since its library
// writes by filename.
func Write(w io.Writer, format string, p Payload) error {
	switch format {
	case "mat":
		return WriteMAT(w, p)
	case "npz":
		return WriteNPZ(w, p)
	case "gob":
		return WriteGob(w, p)
	case "h5", "hdf5":
		tmp, err := os.CreateTemp("", "ssm-export-*.h5")
		if err != nil {
			return fmt.Errorf("temp file: %w", err)
		}
		tmpName := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpName)
		if err := WriteHDF5(tmpName, p); err != nil {
			return err
		}
		f, err := os.Open(tmpName)
		if err != nil {
			return fmt.Errorf("reopen %s: %w", tmpName, err)
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	}
	return fmt.Errorf("unsupported export format %q (have %s)", format, strings.Join(Formats(), ", "))
}
