package export

import (
	"encoding/gob"
	"fmt"
	"io"
)

// WriteGob writes the payload with encoding/gob, the generic binary form
// other Go programs can decode directly.
func WriteGob(w io.Writer, p Payload) error {
	if err := gob.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}

// ReadGob decodes a payload previously written by WriteGob.
func ReadGob(r io.Reader) (Payload, error) {
	var p Payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decode gob: %w", err)
	}
	return p, nil
}
