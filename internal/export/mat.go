package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// MAT-file data element types and array classes (level 5 format).
const (
	miINT8   = 1
	miUINT16 = 4
	miINT32  = 5
	miUINT32 = 6
	miDOUBLE = 9
	miMATRIX = 14

	mxCHAR   = 4
	mxDOUBLE = 6
)

// WriteMAT writes the payload as an uncompressed little-endian MATLAB
// level-5 MAT-file. Each array becomes a double matrix (1D arrays as row
// vectors), each unit a char array named "<name>_unit", and the slice
// position a scalar named "slice_index". No pure-Go MAT writer library
// exists, so the element layout follows the published format description.
func WriteMAT(w io.Writer, p Payload) error {
	if err := writeMATHeader(w, p.Title); err != nil {
		return err
	}
	for _, item := range p.Items {
		rows, cols, err := matDims(item)
		if err != nil {
			return err
		}
		if err := writeMATDouble(w, item.Name, rows, cols, item.Values); err != nil {
			return fmt.Errorf("matrix %q: %w", item.Name, err)
		}
		if item.Unit != "" {
			if err := writeMATChar(w, item.Name+"_unit", item.Unit); err != nil {
				return fmt.Errorf("unit of %q: %w", item.Name, err)
			}
		}
	}
	if p.SliceIndex != nil {
		if err := writeMATDouble(w, "slice_index", 1, 1, []float64{float64(*p.SliceIndex)}); err != nil {
			return fmt.Errorf("slice_index: %w", err)
		}
	}
	return nil
}

func matDims(item Item) (rows, cols int, err error) {
	switch len(item.Shape) {
	case 1:
		return 1, item.Shape[0], nil
	case 2:
		return item.Shape[0], item.Shape[1], nil
	}
	return 0, 0, fmt.Errorf("matrix %q: unsupported shape %v", item.Name, item.Shape)
}

// writeMATHeader emits the 128-byte file header: descriptive text, an
// empty subsystem offset, version 0x0100, and the little-endian marker.
func writeMATHeader(w io.Writer, title string) error {
	desc := fmt.Sprintf("MATLAB 5.0 MAT-file, Created by: ssm-analyze on %s, Title: %s",
		time.Now().UTC().Format(time.RFC3339), title)
	buf := make([]byte, 128)
	for i := range buf[:116] {
		buf[i] = ' '
	}
	copy(buf[:116], desc)
	// buf[116:124] stays zero (no subsystem data).
	binary.LittleEndian.PutUint16(buf[124:126], 0x0100)
	buf[126] = 'I'
	buf[127] = 'M'
	_, err := w.Write(buf)
	return err
}

// writeMATDouble writes one miMATRIX element holding a double array.
// Values arrive row-major and are stored column-major as the format
// requires.
func writeMATDouble(w io.Writer, name string, rows, cols int, values []float64) error {
	if len(values) != rows*cols {
		return fmt.Errorf("have %d values, want %d", len(values), rows*cols)
	}
	var body bytes.Buffer
	writeArrayFlags(&body, mxDOUBLE)
	writeDimensions(&body, rows, cols)
	writeArrayName(&body, name)

	// Real part, column-major.
	writeTag(&body, miDOUBLE, 8*len(values))
	colMajor := make([]float64, len(values))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			colMajor[j*rows+i] = values[i*cols+j]
		}
	}
	binary.Write(&body, binary.LittleEndian, colMajor)
	pad(&body)

	return writeElement(w, &body)
}

// writeMATChar writes one miMATRIX element holding a 1xN char array with
// UTF-16 code units, the layout MATLAB uses for short text.
func writeMATChar(w io.Writer, name, text string) error {
	runes := []rune(text)
	var body bytes.Buffer
	writeArrayFlags(&body, mxCHAR)
	writeDimensions(&body, 1, len(runes))
	writeArrayName(&body, name)

	writeTag(&body, miUINT16, 2*len(runes))
	for _, r := range runes {
		binary.Write(&body, binary.LittleEndian, uint16(r))
	}
	pad(&body)

	return writeElement(w, &body)
}

func writeElement(w io.Writer, body *bytes.Buffer) error {
	head := make([]byte, 8)
	binary.LittleEndian.PutUint32(head[0:4], miMATRIX)
	binary.LittleEndian.PutUint32(head[4:8], uint32(body.Len()))
	if _, err := w.Write(head); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func writeArrayFlags(buf *bytes.Buffer, class uint32) {
	writeTag(buf, miUINT32, 8)
	binary.Write(buf, binary.LittleEndian, class) // flags live in the upper bytes, all clear
	binary.Write(buf, binary.LittleEndian, uint32(0))
}

func writeDimensions(buf *bytes.Buffer, rows, cols int) {
	writeTag(buf, miINT32, 8)
	binary.Write(buf, binary.LittleEndian, int32(rows))
	binary.Write(buf, binary.LittleEndian, int32(cols))
}

func writeArrayName(buf *bytes.Buffer, name string) {
	writeTag(buf, miINT8, len(name))
	buf.WriteString(name)
	pad(buf)
}

func writeTag(buf *bytes.Buffer, dtype, nbytes int) {
	binary.Write(buf, binary.LittleEndian, uint32(dtype))
	binary.Write(buf, binary.LittleEndian, uint32(nbytes))
}

// pad aligns the buffer to the 8-byte element boundary.
func pad(buf *bytes.Buffer) {
	for buf.Len()%8 != 0 {
		buf.WriteByte(0)
	}
}
