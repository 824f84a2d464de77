package core

import (
	"encoding/json"
	"io"
)

// JSONCodec is the default Codec implementation, wrapping encoding/json.
// No third-party codec in the retrieved pack targets plain
// encode-a-struct/decode-into-a-struct usage better than the standard
// library does for this module's wire format (the alternate
// go-json-experiment/json codec in internal/codecx exists to demonstrate
// the injection point, not because encoding/json is deficient here).
type JSONCodec struct{}

func (JSONCodec) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func (JSONCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

var _ Codec = JSONCodec{}
