// Package bench measures partitioning throughput across input sizes and
// derives selector thresholds from the measurements.
//
// Inputs are a counter pattern (byte i is i mod 256) over a geometric sweep
// of sizes, split into a fixed number of channels. Each strategy is called
// repeatedly until a minimum measurement time has passed, and the mean time
// per call is recorded.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/latk/slicing-perf/splice"
)

// ErrIncomplete is returned by Calibrate when the results lack a strategy
// needed to place a threshold.
var ErrIncomplete = errors.New("bench: results do not cover every strategy")

// Config configures a sweep.
type Config struct {
	// Channels is the channel count used for every split.
	Channels int

	// MaxPow is the largest size exponent: sizes run from 1 to 1<<MaxPow.
	MaxPow int

	// MinTime is the minimum time spent measuring one strategy at one size.
	MinTime time.Duration

	// Strategies lists the strategies to measure.
	Strategies []splice.Strategy

	// Parallel configures the parallel strategy.
	Parallel splice.Parallel
}

// DefaultConfig returns a sweep from 1 byte to 64 MiB with 5 channels over
// all three strategies.
func DefaultConfig() Config {
	return Config{
		Channels:   5,
		MaxPow:     26,
		MinTime:    100 * time.Millisecond,
		Strategies: splice.Strategies(),
	}
}

// Validate reports whether c describes a runnable sweep.
func (c Config) Validate() error {
	switch {
	case c.Channels < 1:
		return fmt.Errorf("bench: channels %d: %w", c.Channels, splice.ErrInvalidChannelCount)
	case c.MaxPow < 0 || c.MaxPow > 40:
		return fmt.Errorf("bench: max pow %d out of range 0..40", c.MaxPow)
	case c.MinTime < 0:
		return fmt.Errorf("bench: negative min time %v", c.MinTime)
	case len(c.Strategies) == 0:
		return errors.New("bench: no strategies")
	}
	return nil
}

// Sizes returns the first count powers of two: 1, 2, 4, ...
func Sizes(count int) []int {
	sizes := make([]int, 0, max(count, 0))
	for i := range count {
		sizes = append(sizes, 1<<i)
	}
	return sizes
}

// Pattern returns n bytes where byte i is i mod 256.
func Pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// Result is one measurement.
type Result struct {
	Strategy   splice.Strategy
	Size       int
	Iterations int
	PerOp      time.Duration
}

// Throughput returns processed bytes per second.
func (r Result) Throughput() float64 {
	if r.PerOp <= 0 {
		return math.Inf(1)
	}
	return float64(r.Size) / r.PerOp.Seconds()
}

func (c Config) partitioner(s splice.Strategy) splice.Partitioner {
	if s == splice.StrategyParallel {
		return c.Parallel
	}
	return s.Partitioner()
}

// Run measures every configured strategy at every size, smallest size first.
// It stops between measurements when ctx is done.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]Result, 0, (cfg.MaxPow+1)*len(cfg.Strategies))
	for _, size := range Sizes(cfg.MaxPow + 1) {
		input := Pattern(size)
		for _, s := range cfg.Strategies {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			r, err := measure(cfg, s, input)
			if err != nil {
				return results, err
			}
			logger.Debug("measured",
				"strategy", s,
				"size", size,
				"iterations", r.Iterations,
				"per_op", r.PerOp)
			results = append(results, r)
		}
	}
	return results, nil
}

func measure(cfg Config, s splice.Strategy, input []byte) (Result, error) {
	p := cfg.partitioner(s)
	iterations := 0
	start := time.Now()
	for {
		if _, err := p.Partition(cfg.Channels, input); err != nil {
			return Result{}, fmt.Errorf("bench: %v at %d bytes: %w", s, len(input), err)
		}
		iterations++
		if time.Since(start) >= cfg.MinTime {
			break
		}
	}
	elapsed := time.Since(start)
	return Result{
		Strategy:   s,
		Size:       len(input),
		Iterations: iterations,
		PerOp:      elapsed / time.Duration(iterations),
	}, nil
}

// Calibrate derives selector thresholds from a sweep.
//
// Small is the first size at which Stepped beats Sequential. Large is the
// first size at or above Small at which Parallel beats both. A strategy that
// never wins pushes its threshold to math.MaxInt.
func Calibrate(results []Result) (splice.Thresholds, error) {
	perOp := make(map[int]map[splice.Strategy]time.Duration)
	var sizes []int
	for _, r := range results {
		m, ok := perOp[r.Size]
		if !ok {
			m = make(map[splice.Strategy]time.Duration)
			perOp[r.Size] = m
			sizes = append(sizes, r.Size)
		}
		m[r.Strategy] = r.PerOp
	}
	if len(sizes) == 0 {
		return splice.Thresholds{}, ErrIncomplete
	}
	for _, size := range sizes {
		m := perOp[size]
		for _, s := range splice.Strategies() {
			if _, ok := m[s]; !ok {
				return splice.Thresholds{}, fmt.Errorf("%w: no %v result at %d bytes", ErrIncomplete, s, size)
			}
		}
	}
	slices.Sort(sizes)

	t := splice.Thresholds{Small: math.MaxInt, Large: math.MaxInt}
	for _, size := range sizes {
		m := perOp[size]
		if m[splice.StrategyStepped] < m[splice.StrategySequential] {
			t.Small = size
			break
		}
	}
	for _, size := range sizes {
		m := perOp[size]
		if size < t.Small && t.Small != math.MaxInt {
			continue
		}
		best := min(m[splice.StrategySequential], m[splice.StrategyStepped])
		if m[splice.StrategyParallel] < best {
			t.Large = size
			break
		}
	}
	if t.Large < t.Small {
		t.Small = t.Large
	}
	return t, nil
}
