package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// scanManifest is the manifest template for WriteScanFixture. The mag grid
// is 2x3 with a NaN in the last cell.
const scanManifest = `{
  "location": "%s",
  "kind": "scan",
  "loop": {"direction": {"x": "%s", "y": "%s"}},
  "arrays": {
    "x":   {"unit": "um",    "shape": [3],    "file": "x.dat"},
    "y":   {"unit": "um",    "shape": [2],    "file": "y.dat"},
    "mag": {"unit": "mPhi0", "shape": [2, 3], "file": "mag.dat"}
  }
}`

const tdManifest = `{
  "location": "%s",
  "kind": "td_cap",
  "loop": {"direction": {"x": "pos", "y": "pos"}},
  "arrays": {
    "height": {"unit": "um", "shape": [4], "file": "height.dat"},
    "cap":    {"unit": "fF", "shape": [4], "file": "cap.dat"}
  }
}`

// WriteScanFixture writes a small 2D scan dataset under root and returns
// its directory. x = [0 1 2], y = [0 10], mag = [[1 2 3] [4 5 NaN]].
func WriteScanFixture(t testing.TB, root, location, xdir, ydir string) string {
	t.Helper()
	dir := filepath.Join(root, location)
	writeFile(t, dir, "snapshot.json", fmt.Sprintf(scanManifest, location, xdir, ydir))
	writeFile(t, dir, "x.dat", "0 1 2\n")
	writeFile(t, dir, "y.dat", "0 10\n")
	writeFile(t, dir, "mag.dat", "# magnetometry\n1 2 3\n4 5 nan\n")
	return dir
}

// WriteTouchdownFixture writes a small 1D touchdown dataset under root and
// returns its directory. height = [0 1 2 3], cap = [10 11 12 13].
func WriteTouchdownFixture(t testing.TB, root, location string) string {
	t.Helper()
	dir := filepath.Join(root, location)
	writeFile(t, dir, "snapshot.json", fmt.Sprintf(tdManifest, location))
	writeFile(t, dir, "height.dat", "0\n1\n2\n3\n")
	writeFile(t, dir, "cap.dat", "10 11 12 13\n")
	return dir
}

func writeFile(t testing.TB, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
