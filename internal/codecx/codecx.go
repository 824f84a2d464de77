// Package codecx provides an alternate Codec implementation over
// go-json-experiment/json, exercising the injection point core.Codec
// leaves open. It is not wired in by default —
// swiftregistry.WithCodec(codecx.New()) opts in.
package codecx

import (
	"fmt"
	"io"

	jsonv2 "github.com/go-json-experiment/json"
)

// Codec implements core.Codec using the experimental json/v2 API, which
// keeps encoding/json-compatible Marshal/Unmarshal semantics while
// avoiding reflection-heavy struct caching on the hot path of repeated
// metadata decodes.
type Codec struct{}

// New returns a ready-to-use Codec.
func New() Codec { return Codec{} }

func (Codec) Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("codecx: read: %w", err)
	}
	return jsonv2.Unmarshal(data, v)
}

func (Codec) Encode(w io.Writer, v any) error {
	data, err := jsonv2.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
