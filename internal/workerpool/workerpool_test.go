package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestForEach(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	err := pool.ForEach(context.Background(), n, func(i int) error {
		results[i] = i * 2
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestForEachVisitsEachIndexOnce(t *testing.T) {
	pool := New(8)
	defer pool.Close()

	n := 1000
	counts := make([]atomic.Int32, n)
	err := pool.ForEach(context.Background(), n, func(i int) error {
		counts[i].Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range counts {
		if c := counts[i].Load(); c != 1 {
			t.Fatalf("index %d visited %d times", i, c)
		}
	}
}

func TestForEachZero(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	called := false
	if err := pool.ForEach(context.Background(), 0, func(int) error {
		called = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("fn called for n=0")
	}
}

func TestForEachError(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	errBoom := errors.New("boom")
	err := pool.ForEach(context.Background(), 10000, func(i int) error {
		if i == 3 {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("ForEach error = %v, want %v", err, errBoom)
	}
}

func TestForEachCanceled(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.ForEach(ctx, 5, func(int) error {
		t.Error("fn called with canceled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ForEach error = %v, want context.Canceled", err)
	}
}

func TestForEachAfterClose(t *testing.T) {
	pool := New(4)
	pool.Close()
	pool.Close()

	sum := 0
	err := pool.ForEach(context.Background(), 10, func(i int) error {
		sum += i
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 45 {
		t.Errorf("sum = %d, want 45", sum)
	}
}

func BenchmarkForEach(b *testing.B) {
	pool := New(runtime.GOMAXPROCS(0))
	defer pool.Close()

	data := make([]int, 5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.ForEach(context.Background(), len(data), func(k int) error {
			data[k]++
			return nil
		})
	}
}
