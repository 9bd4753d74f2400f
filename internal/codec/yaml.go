package codec

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"lionrepo/internal/domain"
)

// YAMLCodec reads and writes chunks as YAML documents with the same
// structure as the JSON form.
type YAMLCodec struct {
	in *domain.Interner
}

// NewYAMLCodec creates a YAML codec interning through in.
func NewYAMLCodec(in *domain.Interner) *YAMLCodec {
	return &YAMLCodec{in: interner(in)}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Decode reads one chunk.
func (c *YAMLCodec) Decode(r io.Reader) (*domain.Chunk, error) {
	var tree any
	if err := yaml.NewDecoder(r).Decode(&tree); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Msg: "empty input"}
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return treeDecoder{in: c.in}.chunk(tree)
}

// Encode writes chunk.
func (c *YAMLCodec) Encode(chunk *domain.Chunk, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(toWire(chunk)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
