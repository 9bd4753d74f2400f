package codec

import (
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"lionrepo/internal/domain"
)

// JSONCodec reads and writes chunks as JSON.
type JSONCodec struct {
	in     *domain.Interner
	Indent string
}

// NewJSONCodec creates a JSON codec interning through in (nil selects the
// default interner). Output is indented with two spaces.
func NewJSONCodec(in *domain.Interner) *JSONCodec {
	return &JSONCodec{in: interner(in), Indent: "  "}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Decode reads one chunk.
func (c *JSONCodec) Decode(r io.Reader) (*domain.Chunk, error) {
	var tree any
	if err := gojson.NewDecoder(r).Decode(&tree); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Msg: "empty input"}
		}
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return treeDecoder{in: c.in}.chunk(tree)
}

// Encode writes chunk.
func (c *JSONCodec) Encode(chunk *domain.Chunk, w io.Writer) error {
	encoder := gojson.NewEncoder(w)
	encoder.SetIndent("", c.Indent)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(toWire(chunk)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
