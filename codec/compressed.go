package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
)

// MetaCompression is the annotation key naming the algorithm applied to a
// stored payload. Absent means the payload is stored as Inner produced it.
const MetaCompression = "compression"

type Algorithm string

const (
	Snappy Algorithm = "snappy"
	Brotli Algorithm = "brotli"
)

// Compressed layers compression over another codec.
//
// Payloads shorter than MinSize are stored uncompressed and carry no
// annotation, so Decode always follows the stored annotation rather than the
// configured Algorithm. Records written with a different algorithm, or
// before compression was enabled, stay readable.
type Compressed[V any] struct {
	Inner     Codec[V]
	Algorithm Algorithm // "" => Snappy
	MinSize   int
	Level     int // brotli quality; 0 => brotli.DefaultCompression
}

func (c Compressed[V]) Encode(v V, meta Meta) ([]byte, error) {
	raw, err := c.Inner.Encode(v, meta)
	if err != nil {
		return nil, err
	}
	if len(raw) < c.MinSize {
		return raw, nil
	}
	alg := c.Algorithm
	if alg == "" {
		alg = Snappy
	}
	out, err := compress(alg, raw, c.Level)
	if err != nil {
		return nil, err
	}
	meta[MetaCompression] = string(alg)
	return out, nil
}

func (c Compressed[V]) Decode(b []byte, meta Meta) (V, error) {
	raw, err := decompress(Algorithm(meta[MetaCompression]), b)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.Inner.Decode(raw, meta)
}

func compress(alg Algorithm, b []byte, level int) ([]byte, error) {
	switch alg {
	case Snappy:
		return snappy.Encode(nil, b), nil
	case Brotli:
		if level == 0 {
			level = brotli.DefaultCompression
		}
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, level)
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("codec: unknown compression %q", alg)
	}
}

func decompress(alg Algorithm, b []byte) ([]byte, error) {
	switch alg {
	case "":
		return b, nil
	case Snappy:
		return snappy.Decode(nil, b)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(b)))
	default:
		return nil, fmt.Errorf("codec: unknown compression %q", alg)
	}
}
