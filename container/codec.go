package container

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/latk/slicing-perf/compression"
	"github.com/latk/slicing-perf/internal/interleave"
	"github.com/latk/slicing-perf/internal/predictor"
	"github.com/latk/slicing-perf/internal/xdr"
	"github.com/latk/slicing-perf/splice"
)

// Encode splits data into opts.Channels planes and writes them as a
// container.
func Encode(data []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if uint64(len(data)) > MaxLength {
		return nil, fmt.Errorf("%w: length %d", ErrTooLarge, len(data))
	}

	splitter := opts.Splitter
	if splitter == nil {
		splitter = splice.Selector{}
	}
	planes, err := splitter.Partition(opts.Channels, data)
	if err != nil {
		return nil, fmt.Errorf("container: split: %w", err)
	}
	// The planes are freshly allocated, so the predictor may run in place.
	if opts.Predictor {
		predictor.EncodePlanes(planes)
	}

	streams := planes
	if opts.Solid {
		streams = [][]byte{interleave.Pack(planes, nil)}
	}

	compressed := make([][]byte, len(streams))
	var g errgroup.Group
	g.SetLimit(opts.workers())
	for i, s := range streams {
		g.Go(func() error {
			c, err := compression.Compress(opts.Codec, opts.Level, s)
			if err != nil {
				return fmt.Errorf("container: stream %d: %w", i, err)
			}
			if uint64(len(c)) > math.MaxUint32 {
				return fmt.Errorf("%w: stream %d compresses to %d bytes", ErrTooLarge, i, len(c))
			}
			compressed[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := Header{
		Version:   Version,
		Codec:     opts.Codec,
		Predictor: opts.Predictor,
		Solid:     opts.Solid,
		Channels:  opts.Channels,
		Length:    len(data),
		Sizes:     make([]int, len(compressed)),
	}
	total := h.Size()
	for i, c := range compressed {
		h.Sizes[i] = len(c)
		total += len(c)
	}

	w := xdr.NewBufferWriter(total)
	h.write(w)
	for _, c := range compressed {
		w.WriteBytes(c)
	}
	return w.Bytes(), nil
}

// DecodeChannels decodes a container into its channel planes.
func DecodeChannels(blob []byte) ([][]byte, error) {
	h, err := ReadHeader(blob)
	if err != nil {
		return nil, err
	}

	payload := blob[h.Size():]
	streams := make([][]byte, h.Streams())
	for i, size := range h.Sizes {
		if size > len(payload) {
			return nil, fmt.Errorf("%w: stream %d needs %d bytes, %d left", ErrTruncated, i, size, len(payload))
		}
		streams[i], payload = payload[:size], payload[size:]
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(payload))
	}

	raw := make([][]byte, len(streams))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range streams {
		g.Go(func() error {
			d, err := compression.Decompress(h.Codec, s, h.StreamLen(i))
			if err != nil {
				return fmt.Errorf("%w: stream %d: %w", ErrCorrupt, i, err)
			}
			raw[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	planes := raw
	if h.Solid {
		if planes, err = interleave.Unpack(raw[0], h.Channels); err != nil {
			return nil, err
		}
	}
	if h.Predictor {
		predictor.DecodePlanes(planes)
	}
	return planes, nil
}

// Decode decodes a container back into the original interleaved stream.
func Decode(blob []byte) ([]byte, error) {
	planes, err := DecodeChannels(blob)
	if err != nil {
		return nil, err
	}
	return splice.Merge(planes)
}

// PlaneStats describes one stored stream.
type PlaneStats struct {
	Raw        int
	Compressed int
}

// Ratio returns Raw/Compressed, or 0 for an empty stream.
func (p PlaneStats) Ratio() float64 {
	if p.Compressed == 0 {
		return 0
	}
	return float64(p.Raw) / float64(p.Compressed)
}

// Stats reads the header of blob and reports the size of every stream
// without decompressing anything.
func Stats(blob []byte) (Header, []PlaneStats, error) {
	h, err := ReadHeader(blob)
	if err != nil {
		return h, nil, err
	}
	stats := make([]PlaneStats, h.Streams())
	for i := range stats {
		stats[i] = PlaneStats{Raw: h.StreamLen(i), Compressed: h.Sizes[i]}
	}
	return h, stats, nil
}
