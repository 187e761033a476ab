package splice

import "fmt"

// Merge reverses a split: it interleaves the channels back into a single
// buffer, taking byte j of channel k for position k + j*len(channels).
//
// The channel lengths must be exactly those a split of their total length
// would produce, otherwise ErrChannelLayout is returned.
func Merge(channels [][]byte) ([]byte, error) {
	c := len(channels)
	if err := checkChannels(c); err != nil {
		return nil, err
	}

	n := 0
	for _, ch := range channels {
		n += len(ch)
	}
	for k, ch := range channels {
		if want := ChannelLen(n, c, k); len(ch) != want {
			return nil, fmt.Errorf("%w: channel %d has %d bytes, want %d of %d", ErrChannelLayout, k, len(ch), want, n)
		}
	}

	out, err := allocate[byte](n, n)
	if err != nil {
		return nil, err
	}
	for k, ch := range channels {
		for j, b := range ch {
			out[k+j*c] = b
		}
	}
	return out, nil
}
