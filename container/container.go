// Package container implements the planar container: a byte stream split
// into channels, with each channel plane optionally delta-predicted and
// compressed on its own.
//
// Layout (all integers little endian):
//
//	magic    "SPLC"
//	version  u8
//	codec    u8   compression.Codec
//	flags    u8   bit 0: predictor, bit 1: solid
//	reserved u8
//	channels u32
//	length   u64  size of the original stream
//	sizes    u32  compressed size of each stream
//	streams  ...
//
// There is one stream per channel, or a single stream holding all planes
// back to back when the solid flag is set. Plane sizes are not stored: they
// follow from length and channels.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	"github.com/latk/slicing-perf/compression"
	"github.com/latk/slicing-perf/internal/xdr"
	"github.com/latk/slicing-perf/splice"
)

// Magic identifies a planar container.
const Magic = "SPLC"

// Version is the container format version written by Encode.
const Version = 1

// MaxLength bounds the original stream size accepted by Decode.
const MaxLength = 1 << 40

// MaxChannels bounds the channel count of a container. A solid container
// stores one size entry whatever its channel count, so the count is not
// otherwise limited by the size of the blob.
const MaxChannels = 1 << 16

const (
	flagPredictor = 1 << 0
	flagSolid     = 1 << 1
	knownFlags    = flagPredictor | flagSolid
)

// headerFixedSize is the header size before the stream sizes.
const headerFixedSize = 4 + 4 + 4 + 8

// Container errors
var (
	ErrBadMagic       = errors.New("container: not a planar container")
	ErrVersion        = errors.New("container: unsupported version")
	ErrTruncated      = errors.New("container: truncated data")
	ErrCorrupt        = errors.New("container: corrupt data")
	ErrTooLarge       = errors.New("container: stream too large")
	ErrInvalidOptions = errors.New("container: invalid options")
)

// Options configures Encode.
type Options struct {
	// Channels is the number of interleaved channels in the input.
	Channels int

	// Codec and Level select the plane compression.
	Codec compression.Codec
	Level compression.Level

	// Predictor delta-encodes each plane before compression.
	Predictor bool

	// Solid compresses all planes as a single stream. This helps when
	// planes are too small to compress well on their own.
	Solid bool

	// Splitter splits the input. nil means a splice.Selector with default
	// thresholds.
	Splitter splice.Partitioner

	// Workers caps how many planes are compressed at once.
	// 0 means runtime.GOMAXPROCS(0).
	Workers int
}

// DefaultOptions returns options for a single channel, zlib at the default
// level, with the predictor enabled.
func DefaultOptions() Options {
	return Options{
		Channels:  1,
		Codec:     compression.Zlib,
		Level:     compression.LevelDefault,
		Predictor: true,
	}
}

// Validate reports whether o can be used for Encode.
func (o Options) Validate() error {
	if o.Channels < 1 || o.Channels > MaxChannels {
		return fmt.Errorf("%w: channels %d", ErrInvalidOptions, o.Channels)
	}
	if !o.Codec.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, o.Codec)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// Header describes an encoded container.
type Header struct {
	Version   uint8
	Codec     compression.Codec
	Predictor bool
	Solid     bool
	Channels  int
	Length    int

	// Sizes holds the compressed size of every stream.
	Sizes []int
}

// Streams returns the number of compressed streams.
func (h Header) Streams() int {
	if h.Solid {
		return 1
	}
	return h.Channels
}

// StreamLen returns the decompressed size of stream i.
func (h Header) StreamLen(i int) int {
	if h.Solid {
		return h.Length
	}
	return splice.ChannelLen(h.Length, h.Channels, i)
}

// Size returns the encoded header size in bytes.
func (h Header) Size() int {
	return headerFixedSize + 4*h.Streams()
}

func (h Header) flags() uint8 {
	var f uint8
	if h.Predictor {
		f |= flagPredictor
	}
	if h.Solid {
		f |= flagSolid
	}
	return f
}

func (h Header) write(w *xdr.BufferWriter) {
	w.WriteBytes([]byte(Magic))
	w.WriteUint8(h.Version)
	w.WriteUint8(uint8(h.Codec))
	w.WriteUint8(h.flags())
	w.WriteUint8(0)
	w.WriteUint32(uint32(h.Channels))
	w.WriteUint64(uint64(h.Length))
	for _, s := range h.Sizes {
		w.WriteUint32(uint32(s))
	}
}

// ReadHeader decodes the header at the start of blob.
func ReadHeader(blob []byte) (Header, error) {
	var h Header
	r := xdr.NewReader(blob)

	magic, err := r.ReadBytes(len(Magic))
	if err != nil || !bytes.Equal(magic, []byte(Magic)) {
		return h, ErrBadMagic
	}
	if r.Len() < headerFixedSize-len(Magic) {
		return h, ErrTruncated
	}

	h.Version, _ = r.ReadUint8()
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	codec, _ := r.ReadUint8()
	h.Codec = compression.Codec(codec)
	if !h.Codec.Valid() {
		return h, fmt.Errorf("%w: %v", ErrCorrupt, h.Codec)
	}
	flags, _ := r.ReadUint8()
	if flags&^knownFlags != 0 {
		return h, fmt.Errorf("%w: unknown flags %#x", ErrCorrupt, flags)
	}
	h.Predictor = flags&flagPredictor != 0
	h.Solid = flags&flagSolid != 0
	_, _ = r.ReadUint8()

	channels, _ := r.ReadUint32()
	length, _ := r.ReadUint64()
	if channels == 0 || channels > MaxChannels {
		return h, fmt.Errorf("%w: %d channels", ErrCorrupt, channels)
	}
	if length > MaxLength {
		return h, fmt.Errorf("%w: length %d", ErrTooLarge, length)
	}
	h.Channels = int(channels)
	h.Length = int(length)

	// Check the size table fits before allocating it.
	streams := h.Streams()
	if r.Len()/4 < streams {
		return h, ErrTruncated
	}
	h.Sizes = make([]int, streams)
	for i := range h.Sizes {
		s, _ := r.ReadUint32()
		h.Sizes[i] = int(s)
	}
	return h, nil
}
