package codec

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"lionrepo/internal/domain"
)

// ZstdCodec frames another codec's output with zstd.
type ZstdCodec struct {
	inner Codec
	level zstd.EncoderLevel
}

// NewZstdCodec wraps inner with the default compression level.
func NewZstdCodec(inner Codec) *ZstdCodec {
	return &ZstdCodec{inner: inner, level: zstd.SpeedDefault}
}

// WithLevel sets the encoder level.
func (c *ZstdCodec) WithLevel(level zstd.EncoderLevel) *ZstdCodec {
	c.level = level
	return c
}

// Format returns the inner format with a +zstd suffix.
func (c *ZstdCodec) Format() string {
	return c.inner.Format() + "+zstd"
}

// Decode decompresses r and decodes the inner format.
func (c *ZstdCodec) Decode(r io.Reader) (*domain.Chunk, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer zr.Close()
	return c.inner.Decode(zr)
}

// Encode encodes with the inner codec and compresses the result.
func (c *ZstdCodec) Encode(chunk *domain.Chunk, w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := c.inner.Encode(chunk, zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}
