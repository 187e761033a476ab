// Package interleave converts between a list of channel buffers and the
// planar layout, where the channels of a split are stored back to back in
// one contiguous buffer.
//
// For 7 bytes split into 3 channels:
//
//	Input:   [a0, b0, c0, a1, b1, c1, a2]
//	Planar:  [a0, a1, a2 | b0, b1 | c0, c1]
//
// The plane boundaries are implied by the total length and channel count,
// so a planar buffer needs no index.
package interleave

import "github.com/latk/slicing-perf/splice"

// Pack concatenates channels into a single planar buffer.
// If out is nil or too small, a new buffer is allocated.
func Pack(channels [][]byte, out []byte) []byte {
	n := 0
	for _, ch := range channels {
		n += len(ch)
	}
	if cap(out) < n {
		out = make([]byte, n)
	}
	out = out[:n]

	off := 0
	for _, ch := range channels {
		off += copy(out[off:], ch)
	}
	return out
}

// Unpack splits a planar buffer into its channel planes.
// The returned planes are views into planar, not copies.
func Unpack(planar []byte, channels int) ([][]byte, error) {
	if channels < 1 {
		return nil, splice.ErrInvalidChannelCount
	}

	n := len(planar)
	out := make([][]byte, channels)
	off := 0
	for k := range out {
		size := splice.ChannelLen(n, channels, k)
		out[k] = planar[off : off+size : off+size]
		off += size
	}
	return out, nil
}
