// Package compression compresses individual channel planes.
//
// Splitting interleaved samples into channels groups bytes with similar
// statistics, so each plane usually compresses much better than the
// interleaved stream. This package provides the per-plane codecs used by the
// container format: no compression, zlib and zstd.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Compression errors
var (
	ErrCorrupted    = errors.New("compression: corrupted data")
	ErrOverflow     = errors.New("compression: decompressed size overflow")
	ErrUnknownCodec = errors.New("compression: unknown codec")
)

// Codec identifies a plane compression algorithm. The numeric values are
// stored in container headers and must not change.
type Codec uint8

const (
	None Codec = 0
	Zlib Codec = 1
	Zstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// Valid reports whether c is a known codec.
func (c Codec) Valid() bool {
	return c <= Zstd
}

// ParseCodec parses a codec name as printed by String.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "raw":
		return None, nil
	case "zlib", "zip":
		return Zlib, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Level is a codec-specific compression level.
//
// For zlib, valid values are -2 to 9 (-2 is Huffman-only, 0 stores).
// For zstd, values 1 to 22 follow the reference zstd levels.
// LevelDefault selects each codec's default.
type Level int

const (
	LevelDefault   Level = -1
	LevelBestSpeed Level = 1
	LevelBestSize  Level = 9
)

// Compress compresses src with the given codec.
// An empty src compresses to an empty result for every codec.
func Compress(c Codec, level Level, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	switch c {
	case None:
		return bytes.Clone(src), nil
	case Zlib:
		return zlibCompress(src, level)
	case Zstd:
		return zstdCompress(src, level)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}

// Decompress decompresses src, which must expand to exactly size bytes.
// The output buffer grows with the data actually decoded, so a size taken
// from an untrusted header is never allocated up front.
func Decompress(c Codec, src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrCorrupted
	}
	if len(src) == 0 {
		if size != 0 {
			return nil, ErrCorrupted
		}
		return []byte{}, nil
	}
	switch c {
	case None:
		if len(src) != size {
			return nil, fmt.Errorf("%w: stored plane has %d bytes, want %d", ErrCorrupted, len(src), size)
		}
		return bytes.Clone(src), nil
	case Zlib:
		return zlibDecompress(src, size)
	case Zstd:
		return zstdDecompress(src, size)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}

// readPlane reads exactly size bytes from r. Reading stops one byte past
// size, which is enough to tell an overlong plane from a valid one.
func readPlane(r io.Reader, srcLen, size int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(min(size, max(4*srcLen, bytes.MinRead)))
	if _, err := buf.ReadFrom(io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	switch n := buf.Len(); {
	case n > size:
		return nil, ErrOverflow
	case n < size:
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupted, n, size)
	}
	b := buf.Bytes()
	return b[:size:size], nil
}
