// Package codec converts serialization chunks to and from their tree-shaped
// text forms: JSON, YAML, and either of them framed with zstd.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"lionrepo/internal/domain"
)

// Decoder reads a chunk from a text format.
type Decoder interface {
	Decode(r io.Reader) (*domain.Chunk, error)
	Format() string
}

// Encoder writes a chunk to a text format.
type Encoder interface {
	Encode(chunk *domain.Chunk, w io.Writer) error
	Format() string
}

// Codec both reads and writes one format.
type Codec interface {
	Decoder
	Encoder
}

// DecodeError reports a malformed chunk. Field is the path of the offending
// value, for example nodes[2].classifier.key.
type DecodeError struct {
	Field string
	Msg   string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode chunk: " + e.Msg
	}
	return fmt.Sprintf("decode chunk: field %s: %s", e.Field, e.Msg)
}

const zstdSuffix = ".zst"

// ForFormat returns the codec named format: json, yaml, or either with a
// +zstd suffix. A nil interner selects domain.DefaultInterner.
func ForFormat(format string, in *domain.Interner) (Codec, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(format), "+zstd")
	var c Codec
	switch base {
	case "json":
		c = NewJSONCodec(in)
	case "yaml", "yml":
		c = NewYAMLCodec(in)
	default:
		return nil, fmt.Errorf("unsupported chunk format %q", format)
	}
	if compressed {
		return NewZstdCodec(c), nil
	}
	return c, nil
}

// ForPath picks a codec from a file name such as chunk.json, model.yaml or
// dump.json.zst.
func ForPath(path string, in *domain.Interner) (Codec, error) {
	name := strings.ToLower(filepath.Base(path))
	name, compressed := strings.CutSuffix(name, zstdSuffix)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer chunk format of %s", path)
	}
	if compressed {
		ext += "+zstd"
	}
	return ForFormat(ext, in)
}

func interner(in *domain.Interner) *domain.Interner {
	if in == nil {
		return domain.DefaultInterner
	}
	return in
}
