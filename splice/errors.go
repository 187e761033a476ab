package splice

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrInvalidChannelCount is returned when the channel count is less than 1.
	ErrInvalidChannelCount = errors.New("splice: channel count must be at least 1")

	// ErrAllocation is returned when a channel buffer cannot be allocated.
	ErrAllocation = errors.New("splice: buffer allocation failed")

	// ErrChannelLayout is returned by Merge when channel lengths do not
	// describe a valid split of any input.
	ErrChannelLayout = errors.New("splice: channel lengths do not form a valid split")

	// ErrInvalidThresholds is returned by Thresholds.Validate.
	ErrInvalidThresholds = errors.New("splice: invalid thresholds")
)

func checkChannels(channels int) error {
	if channels < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidChannelCount, channels)
	}
	return nil
}

// allocate returns a slice with the given length and capacity. A runtime
// allocation panic (for example a length beyond what the platform can
// address) is reported as ErrAllocation instead of crashing the caller.
func allocate[T any](length, capacity int) (s []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(runtime.Error)
			if !ok {
				panic(r)
			}
			s = nil
			err = fmt.Errorf("%w: capacity %d: %v", ErrAllocation, capacity, re)
		}
	}()
	if length < 0 || capacity < length {
		return nil, fmt.Errorf("%w: length %d, capacity %d", ErrAllocation, length, capacity)
	}
	return make([]T, length, capacity), nil
}
