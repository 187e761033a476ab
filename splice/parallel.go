package splice

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/latk/slicing-perf/internal/workerpool"
)

// Parallel runs the per-channel strided scans of SpliceStepped concurrently,
// one task per output channel.
//
// The zero value is ready to use: each call fans out on a fresh errgroup
// limited to GOMAXPROCS goroutines. Set Pool to reuse long-lived workers
// across calls instead.
type Parallel struct {
	// Workers caps the number of channels extracted at once when Pool is nil.
	// 0 means runtime.GOMAXPROCS(0).
	Workers int

	// Pool, if set, runs the channel tasks and Workers is ignored.
	Pool *Pool
}

func (p Parallel) workers() int {
	if p.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}

// Partition implements Partitioner.
func (p Parallel) Partition(channels int, data []byte) ([][]byte, error) {
	return p.PartitionContext(context.Background(), channels, data)
}

// PartitionContext is Partition with cancellation. When ctx is done, channel
// tasks that have not started are skipped and ctx's error is returned.
// Either every channel is returned or none is.
func (p Parallel) PartitionContext(ctx context.Context, channels int, data []byte) ([][]byte, error) {
	return p.partition(ctx, channels, data, extract)
}

// extractFunc builds channel k of a split.
type extractFunc func(data []byte, channels, k int) ([]byte, error)

func (p Parallel) partition(ctx context.Context, channels int, data []byte, extract extractFunc) ([][]byte, error) {
	if err := checkChannels(channels); err != nil {
		return nil, err
	}

	out, err := allocate[[]byte](channels, channels)
	if err != nil {
		return nil, err
	}

	// Each task writes only out[k]; data is shared read-only.
	task := func(k int) error {
		buf, err := extract(data, channels, k)
		if err != nil {
			return fmt.Errorf("channel %d: %w", k, err)
		}
		out[k] = buf
		return nil
	}

	if p.Pool != nil {
		err = p.Pool.pool.ForEach(ctx, channels, task)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers())
		for k := range channels {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return task(k)
			})
		}
		err = g.Wait()
	}
	if err != nil {
		return nil, err
	}

	return out, nil
}

// SpliceParallel splits data with the default Parallel strategy.
func SpliceParallel(channels int, data []byte) ([][]byte, error) {
	return Parallel{}.Partition(channels, data)
}

// SpliceParallelContext splits data with the default Parallel strategy and
// stops scheduling channels once ctx is done.
func SpliceParallelContext(ctx context.Context, channels int, data []byte) ([][]byte, error) {
	return Parallel{}.PartitionContext(ctx, channels, data)
}

// Pool is a set of long-lived workers shared by Parallel splits.
// Create it once, reuse it across calls and Close it when done.
type Pool struct {
	pool *workerpool.Pool
}

// NewPool starts a pool with the given number of workers.
// If workers <= 0, uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	return &Pool{pool: workerpool.New(workers)}
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.pool.NumWorkers()
}

// Close stops the pool's workers. Splits started after Close run on the
// calling goroutine.
func (p *Pool) Close() {
	p.pool.Close()
}
