package splice

// Partitioner splits data into the given number of interleaved channels.
//
// Implementations must return exactly channels buffers, ordered by channel
// index, where buffer k holds data[k], data[k+channels], data[k+2*channels]...
// The returned buffers never alias data or each other. A channel count below
// 1 fails with ErrInvalidChannelCount before anything is allocated.
type Partitioner interface {
	Partition(channels int, data []byte) ([][]byte, error)
}

// Sequential is the single-pass strategy implemented by Splice.
type Sequential struct{}

// Stepped is the one-pass-per-channel strategy implemented by SpliceStepped.
type Stepped struct{}

// Compile-time checks
var (
	_ Partitioner = Sequential{}
	_ Partitioner = Stepped{}
	_ Partitioner = Parallel{}
	_ Partitioner = Selector{}
)

// Partition implements Partitioner.
func (Sequential) Partition(channels int, data []byte) ([][]byte, error) {
	return Splice(channels, data)
}

// Partition implements Partitioner.
func (Stepped) Partition(channels int, data []byte) ([][]byte, error) {
	return SpliceStepped(channels, data)
}

// Splice walks data once and appends every byte to channel i mod channels.
// Each channel is pre-sized to MaxChannelLen so appends never reallocate.
func Splice(channels int, data []byte) ([][]byte, error) {
	if err := checkChannels(channels); err != nil {
		return nil, err
	}

	out, err := allocate[[]byte](channels, channels)
	if err != nil {
		return nil, err
	}
	each := MaxChannelLen(len(data), channels)
	for k := range out {
		if out[k], err = allocate[byte](0, each); err != nil {
			return nil, err
		}
	}

	// k tracks i mod channels without a division per byte.
	k := 0
	for _, b := range data {
		out[k] = append(out[k], b)
		k++
		if k == channels {
			k = 0
		}
	}

	return out, nil
}

// SpliceStepped builds each channel with its own strided scan of data,
// one channel after another.
func SpliceStepped(channels int, data []byte) ([][]byte, error) {
	if err := checkChannels(channels); err != nil {
		return nil, err
	}

	out, err := allocate[[]byte](channels, channels)
	if err != nil {
		return nil, err
	}
	for k := range out {
		if out[k], err = extract(data, channels, k); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// extract copies data[k], data[k+channels], ... into a new buffer of
// exactly ChannelLen bytes.
func extract(data []byte, channels, k int) ([]byte, error) {
	n := ChannelLen(len(data), channels, k)
	dst, err := allocate[byte](n, n)
	if err != nil {
		return nil, err
	}
	if channels == 2 {
		extractPair(dst, data, k)
		return dst, nil
	}
	// k + j*channels < len(data) for every j in range, so the index cannot overflow.
	for j := range dst {
		dst[j] = data[k+j*channels]
	}
	return dst, nil
}
