package splice

import (
	"fmt"
	"strings"
)

// Thresholds are the input sizes, in bytes, at which the selector switches
// strategy. They are machine dependent; measure them with cmd/splicebench.
type Thresholds struct {
	// Small is the smallest input split with Stepped. Shorter inputs use
	// Sequential.
	Small int

	// Large is the smallest input split with Parallel.
	Large int
}

// DefaultThresholds returns break-even points measured on a reference
// 8-core x86-64 machine with 5 channels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Small: 64,
		Large: 256 << 10,
	}
}

// Validate reports whether t describes an ordered pair of sizes.
func (t Thresholds) Validate() error {
	if t.Small < 0 || t.Large < 0 {
		return fmt.Errorf("%w: negative size (small=%d, large=%d)", ErrInvalidThresholds, t.Small, t.Large)
	}
	if t.Small > t.Large {
		return fmt.Errorf("%w: small %d exceeds large %d", ErrInvalidThresholds, t.Small, t.Large)
	}
	return nil
}

// Selector chooses a strategy for each call from the input length.
//
// A nil Thresholds means DefaultThresholds. Parallel configures the
// strategy used for large inputs.
type Selector struct {
	Thresholds *Thresholds
	Parallel   Parallel
}

func (s Selector) thresholds() Thresholds {
	if s.Thresholds == nil {
		return DefaultThresholds()
	}
	return *s.Thresholds
}

// Choose returns the strategy used for an input of n bytes.
func (s Selector) Choose(n int) Strategy {
	t := s.thresholds()
	switch {
	case n < t.Small:
		return StrategySequential
	case n < t.Large:
		return StrategyStepped
	default:
		return StrategyParallel
	}
}

// Partition implements Partitioner by delegating to the chosen strategy.
// It fails with ErrInvalidThresholds if the thresholds do not validate.
func (s Selector) Partition(channels int, data []byte) ([][]byte, error) {
	if err := s.thresholds().Validate(); err != nil {
		return nil, err
	}
	switch s.Choose(len(data)) {
	case StrategySequential:
		return Splice(channels, data)
	case StrategyStepped:
		return SpliceStepped(channels, data)
	default:
		return s.Parallel.Partition(channels, data)
	}
}

// Auto splits data with a Selector using DefaultThresholds.
func Auto(channels int, data []byte) ([][]byte, error) {
	return Selector{}.Partition(channels, data)
}

// Strategy names a partitioning strategy.
type Strategy uint8

const (
	StrategyAuto Strategy = iota
	StrategySequential
	StrategyStepped
	StrategyParallel
)

// Strategies returns the concrete strategies in increasing order of fixed cost.
func Strategies() []Strategy {
	return []Strategy{StrategySequential, StrategyStepped, StrategyParallel}
}

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategySequential:
		return "sequential"
	case StrategyStepped:
		return "stepped"
	case StrategyParallel:
		return "parallel"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy parses a strategy name as printed by String.
// The function names splice, splice_stepped and splice_parallel are
// accepted as aliases.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "auto", "":
		return StrategyAuto, nil
	case "sequential", "splice":
		return StrategySequential, nil
	case "stepped", "splice_stepped":
		return StrategyStepped, nil
	case "parallel", "splice_parallel":
		return StrategyParallel, nil
	default:
		return 0, fmt.Errorf("splice: unknown strategy %q", name)
	}
}

// Partitioner returns the default Partitioner for s.
func (s Strategy) Partitioner() Partitioner {
	switch s {
	case StrategySequential:
		return Sequential{}
	case StrategyStepped:
		return Stepped{}
	case StrategyParallel:
		return Parallel{}
	default:
		return Selector{}
	}
}
