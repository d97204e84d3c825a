package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestName is the file that marks a directory as a dataset.
const ManifestName = "snapshot.json"

// maxManifestSize caps manifest reads to catch corrupt or misplaced files.
const maxManifestSize = 1 << 20

// Dataset kinds.
const (
	KindScan      = "scan"
	KindTouchdown = "td_cap"
)

// ArrayInfo describes one named array in the manifest.
type ArrayInfo struct {
	Unit  string `json:"unit"`
	Shape []int  `json:"shape"`
	File  string `json:"file"`
}

// Direction records the loop sweep direction per axis, "pos" or "neg".
// A negative direction means the stored grid is mirrored along that axis.
type Direction struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// Loop carries acquisition loop metadata.
type Loop struct {
	Direction Direction `json:"direction"`
}

// Manifest is the parsed snapshot.json of a dataset directory.
type Manifest struct {
	Location string               `json:"location"`
	Kind     string               `json:"kind"`
	Loop     Loop                 `json:"loop"`
	Arrays   map[string]ArrayInfo `json:"arrays"`
}

// ReadManifest loads and validates the manifest in dir without reading any
// array data.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat manifest: %w", err)
	}
	if fi.Size() > maxManifestSize {
		return nil, fmt.Errorf("manifest %s too large: %d bytes (max %d)", path, fi.Size(), maxManifestSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks manifest invariants common to all loaders.
func (m *Manifest) Validate() error {
	if m.Location == "" {
		return fmt.Errorf("missing location")
	}
	switch m.Kind {
	case KindScan, KindTouchdown:
	default:
		return fmt.Errorf("unknown dataset kind %q", m.Kind)
	}
	if len(m.Arrays) == 0 {
		return fmt.Errorf("no arrays declared")
	}
	for name, info := range m.Arrays {
		if name == "" {
			return fmt.Errorf("array with empty name")
		}
		if len(info.Shape) < 1 || len(info.Shape) > 2 {
			return fmt.Errorf("array %q: shape must have 1 or 2 dimensions, got %d", name, len(info.Shape))
		}
		for _, n := range info.Shape {
			if n < 1 {
				return fmt.Errorf("array %q: non-positive shape %v", name, info.Shape)
			}
		}
		if info.File == "" {
			return fmt.Errorf("array %q: missing file", name)
		}
		if filepath.IsAbs(info.File) || strings.Contains(info.File, "..") {
			return fmt.Errorf("array %q: file %q escapes the dataset directory", name, info.File)
		}
	}
	return nil
}

// IndependentVars returns the coordinate array names for the manifest's
// kind: x and y for scans, height for touchdown captures.
func (m *Manifest) IndependentVars() []string {
	if m.Kind == KindTouchdown {
		return []string{"height"}
	}
	return []string{"x", "y"}
}
