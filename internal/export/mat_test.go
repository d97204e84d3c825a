package export

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

// readTag decodes one 8-byte element tag at off and returns the payload
// bounds plus the offset of the next tag, honoring 8-byte alignment.
func readTag(t *testing.T, data []byte, off int) (dtype, start, end, next int) {
	t.Helper()
	if off+8 > len(data) {
		t.Fatalf("truncated tag at offset %d", off)
	}
	dtype = int(binary.LittleEndian.Uint32(data[off:]))
	n := int(binary.LittleEndian.Uint32(data[off+4:]))
	start = off + 8
	end = start + n
	if end > len(data) {
		t.Fatalf("element at %d runs past buffer (%d > %d)", off, end, len(data))
	}
	next = end
	if rem := next % 8; rem != 0 {
		next += 8 - rem
	}
	return dtype, start, end, next
}

func TestWriteMATHeader(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMAT(&buf, Payload{Title: "scan0001 [mag]"})
	if err != nil {
		t.Fatalf("WriteMAT: %v", err)
	}
	data := buf.Bytes()
	if len(data) != 128 {
		t.Fatalf("header-only file is %d bytes, want 128", len(data))
	}
	if !strings.HasPrefix(string(data[:116]), "MATLAB 5.0 MAT-file") {
		t.Errorf("descriptive text = %q", string(data[:32]))
	}
	if !strings.Contains(string(data[:116]), "scan0001 [mag]") {
		t.Errorf("descriptive text does not mention the title")
	}
	if binary.LittleEndian.Uint16(data[124:]) != 0x0100 {
		t.Errorf("version = %#x, want 0x0100", binary.LittleEndian.Uint16(data[124:]))
	}
	if data[126] != 'I' || data[127] != 'M' {
		t.Errorf("endian marker = %q%q, want IM", data[126], data[127])
	}
}

func TestWriteMATMatrixLayout(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, math.NaN()}
	p := Payload{
		Title: "t",
		Items: []Item{{Name: "z", Unit: "V", Shape: []int{2, 3}, Values: vals}},
	}
	var buf bytes.Buffer
	if err := WriteMAT(&buf, p); err != nil {
		t.Fatalf("WriteMAT: %v", err)
	}
	data := buf.Bytes()

	// First top-level element: the double matrix.
	dtype, start, _, next := readTag(t, data, 128)
	if dtype != miMATRIX {
		t.Fatalf("element type = %d, want miMATRIX", dtype)
	}

	dtype, s, e, off := readTag(t, data, start)
	if dtype != miUINT32 || e-s != 8 {
		t.Fatalf("array flags tag = (%d, %d bytes)", dtype, e-s)
	}
	if class := binary.LittleEndian.Uint32(data[s:]) & 0xff; class != mxDOUBLE {
		t.Errorf("class = %d, want mxDOUBLE", class)
	}

	dtype, s, _, off = readTag(t, data, off)
	if dtype != miINT32 {
		t.Fatalf("dimensions tag type = %d, want miINT32", dtype)
	}
	rows := int32(binary.LittleEndian.Uint32(data[s:]))
	cols := int32(binary.LittleEndian.Uint32(data[s+4:]))
	if rows != 2 || cols != 3 {
		t.Errorf("dims = %dx%d, want 2x3", rows, cols)
	}

	dtype, s, e, off = readTag(t, data, off)
	if dtype != miINT8 || string(data[s:e]) != "z" {
		t.Errorf("name element = (%d, %q), want (miINT8, z)", dtype, data[s:e])
	}

	dtype, s, e, _ = readTag(t, data, off)
	if dtype != miDOUBLE || e-s != 8*len(vals) {
		t.Fatalf("data tag = (%d, %d bytes)", dtype, e-s)
	}
	got := make([]float64, len(vals))
	if err := binary.Read(bytes.NewReader(data[s:e]), binary.LittleEndian, &got); err != nil {
		t.Fatal(err)
	}
	// Column-major: first column is z[0][0], z[1][0].
	want := []float64{1, 4, 2, 5, 3, math.NaN()}
	for i := range want {
		same := got[i] == want[i] || (math.IsNaN(got[i]) && math.IsNaN(want[i]))
		if !same {
			t.Errorf("data[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Second top-level element: the unit char array.
	dtype, start, _, next = readTag(t, data, next)
	if dtype != miMATRIX {
		t.Fatalf("second element type = %d, want miMATRIX", dtype)
	}
	dtype, s, _, off = readTag(t, data, start)
	if class := binary.LittleEndian.Uint32(data[s:]) & 0xff; class != mxCHAR {
		t.Errorf("unit class = %d, want mxCHAR", class)
	}
	_, _, _, off = readTag(t, data, off) // dimensions
	dtype, s, e, off = readTag(t, data, off)
	if string(data[s:e]) != "z_unit" {
		t.Errorf("unit array name = %q, want z_unit", data[s:e])
	}
	dtype, s, e, _ = readTag(t, data, off)
	if dtype != miUINT16 || binary.LittleEndian.Uint16(data[s:]) != 'V' {
		t.Errorf("unit text element = (%d, %v)", dtype, data[s:e])
	}
	if next != len(data) {
		t.Errorf("trailing bytes after last element: %d != %d", next, len(data))
	}
}

func TestWriteMATUnicodeUnit(t *testing.T) {
	p := Payload{
		Items: []Item{{Name: "mag", Unit: "mΦ0", Shape: []int{1}, Values: []float64{7}}},
	}
	var buf bytes.Buffer
	if err := WriteMAT(&buf, p); err != nil {
		t.Fatalf("WriteMAT: %v", err)
	}
	data := buf.Bytes()

	// Skip the double matrix, then walk into the char element.
	_, _, _, second := readTag(t, data, 128)
	dtype, inner, _, _ := readTag(t, data, second)
	if dtype != miMATRIX {
		t.Fatalf("second element type = %d, want miMATRIX", dtype)
	}
	_, _, _, inner = readTag(t, data, inner) // flags
	_, ds, _, inner := readTag(t, data, inner)
	if cols := binary.LittleEndian.Uint32(data[ds+4:]); cols != 3 {
		t.Errorf("char cols = %d, want 3 runes", cols)
	}
	_, _, _, inner = readTag(t, data, inner) // name
	dtype, s, _, _ := readTag(t, data, inner)
	if dtype != miUINT16 {
		t.Fatalf("char data type = %d, want miUINT16", dtype)
	}
	if r := binary.LittleEndian.Uint16(data[s+2:]); rune(r) != 'Φ' {
		t.Errorf("second code unit = %#x, want Φ", r)
	}
}

func TestMatDimsRejectsHigherRank(t *testing.T) {
	_, _, err := matDims(Item{Name: "v", Shape: []int{2, 2, 2}})
	if err == nil {
		t.Error("matDims accepted a rank-3 shape")
	}
}
