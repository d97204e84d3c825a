package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// npzMeta is the sidecar member carrying everything .npy arrays cannot:
// the title, per-array units, and the slice position.
type npzMeta struct {
	Title      string            `json:"title"`
	Units      map[string]string `json:"units"`
	SliceIndex *int              `json:"slice_index,omitempty"`
}

// WriteNPZ writes the payload as a NumPy .npz archive: one .npy member
// per array plus a meta.json member with title, units, and slice index.
func WriteNPZ(w io.Writer, p Payload) error {
	zw := zip.NewWriter(w)
	meta := npzMeta{
		Title:      p.Title,
		Units:      make(map[string]string, len(p.Items)),
		SliceIndex: p.SliceIndex,
	}
	for _, item := range p.Items {
		meta.Units[item.Name] = item.Unit
		mw, err := zw.Create(item.Name + ".npy")
		if err != nil {
			return fmt.Errorf("member %q: %w", item.Name, err)
		}
		if err := writeNPY(mw, item); err != nil {
			return fmt.Errorf("member %q: %w", item.Name, err)
		}
	}
	mw, err := zw.Create("meta.json")
	if err != nil {
		return fmt.Errorf("member meta.json: %w", err)
	}
	if err := json.NewEncoder(mw).Encode(meta); err != nil {
		return fmt.Errorf("member meta.json: %w", err)
	}
	return zw.Close()
}

func writeNPY(w io.Writer, item Item) error {
	if len(item.Shape) == 2 {
		return npyio.Write(w, mat.NewDense(item.Shape[0], item.Shape[1], item.Values))
	}
	return npyio.Write(w, item.Values)
}
