// Package compress implements the block codecs used for column chunks.
package compress

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a block codec. The numeric value is persisted in chunk
// headers and must never change.
type Algorithm uint8

const (
	None   Algorithm = 0
	LZ4    Algorithm = 1
	Zstd   Algorithm = 2
	Snappy Algorithm = 3
	S2     Algorithm = 4
)

var names = map[Algorithm]string{
	None:   "none",
	LZ4:    "lz4",
	Zstd:   "zstd",
	Snappy: "snappy",
	S2:     "s2",
}

func (a Algorithm) String() string {
	if s, ok := names[a]; ok {
		return s
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// Valid reports whether a is a known codec.
func (a Algorithm) Valid() bool {
	_, ok := names[a]
	return ok
}

// Parse resolves a codec name. The empty string is None.
func Parse(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	for a, n := range names {
		if n == name {
			return a, nil
		}
	}
	return None, fmt.Errorf("compress: unknown algorithm %q", name)
}

// Algorithms returns every known codec in id order.
func Algorithms() []Algorithm {
	return []Algorithm{None, LZ4, Zstd, Snappy, S2}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode compresses src. The result may alias src for None.
func Encode(a Algorithm, src []byte) ([]byte, error) {
	switch a {
	case None:
		return src, nil
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := lz4.CompressBlock(src, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if n == 0 && len(src) > 0 {
			// incompressible input; lz4 signals it with n == 0
			return nil, errIncompressible
		}
		return dst[:n], nil
	case Zstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(src, nil), nil
	case Snappy:
		return snappy.Encode(nil, src), nil
	case S2:
		return s2.Encode(nil, src), nil
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", uint8(a))
	}
}

// Decode decompresses src into a buffer of rawSize bytes.
func Decode(a Algorithm, src []byte, rawSize int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch a {
	case None:
		out = src
	case LZ4:
		out = make([]byte, rawSize)
		var n int
		n, err = lz4.UncompressBlock(src, out)
		out = out[:max(n, 0)]
	case Zstd:
		dec := getZstdDecoder()
		out, err = dec.DecodeAll(src, make([]byte, 0, rawSize))
		zstdDecoderPool.Put(dec)
	case Snappy:
		out, err = snappy.Decode(make([]byte, rawSize), src)
	case S2:
		out, err = s2.Decode(make([]byte, rawSize), src)
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", uint8(a))
	}
	if err != nil {
		return nil, fmt.Errorf("compress: %s: %w", a, err)
	}
	if len(out) != rawSize {
		return nil, fmt.Errorf("compress: %s: decoded %d bytes, expected %d", a, len(out), rawSize)
	}
	return out, nil
}

var errIncompressible = fmt.Errorf("compress: incompressible block")

// EncodeBlock compresses src and falls back to None when compression does
// not shrink the block by at least 10%. It returns the algorithm actually used.
func EncodeBlock(a Algorithm, src []byte) (Algorithm, []byte, error) {
	if a == None || len(src) == 0 {
		return None, src, nil
	}
	out, err := Encode(a, src)
	if err == errIncompressible {
		return None, src, nil
	}
	if err != nil {
		return None, nil, err
	}
	if float64(len(out)) > float64(len(src))*0.9 {
		return None, src, nil
	}
	return a, out, nil
}
