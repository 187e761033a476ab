package splice

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// strategies lists every Partitioner that must produce identical output.
var strategies = []struct {
	name string
	p    Partitioner
}{
	{"Sequential", Sequential{}},
	{"Stepped", Stepped{}},
	{"Parallel", Parallel{}},
	{"ParallelTwoWorkers", Parallel{Workers: 2}},
	{"SelectorSequential", Selector{Thresholds: &Thresholds{Small: math.MaxInt, Large: math.MaxInt}}},
	{"SelectorStepped", Selector{Thresholds: &Thresholds{Small: 0, Large: math.MaxInt}}},
	{"SelectorParallel", Selector{Thresholds: &Thresholds{}}},
	{"Auto", Selector{}},
}

func counter(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestSpliceSmallTable(t *testing.T) {
	input := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	expected := [][][]byte{
		1: {{0, 1, 2, 3, 4, 5, 6, 7}},
		2: {{0, 2, 4, 6}, {1, 3, 5, 7}},
		3: {{0, 3, 6}, {1, 4, 7}, {2, 5}},
		4: {{0, 4}, {1, 5}, {2, 6}, {3, 7}},
		5: {{0, 5}, {1, 6}, {2, 7}, {3}, {4}},
		6: {{0, 6}, {1, 7}, {2}, {3}, {4}, {5}},
	}

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			for channels := 1; channels < len(expected); channels++ {
				got, err := s.p.Partition(channels, input)
				if err != nil {
					t.Fatalf("Partition(%d): %v", channels, err)
				}
				if diff := cmp.Diff(expected[channels], got); diff != "" {
					t.Errorf("Partition(%d) mismatch (-want +got):\n%s", channels, diff)
				}
			}
		})
	}
}

func TestSpliceElevenBytesThreeChannels(t *testing.T) {
	input := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	want := [][]byte{{1, 4, 7, 10}, {2, 5, 8, 11}, {3, 6, 9}}

	for _, s := range strategies {
		got, err := s.p.Partition(3, input)
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", s.name, diff)
		}
	}
}

func TestSpliceEmptyInput(t *testing.T) {
	for _, s := range strategies {
		for _, input := range [][]byte{nil, {}} {
			got, err := s.p.Partition(5, input)
			if err != nil {
				t.Fatalf("%s: %v", s.name, err)
			}
			if len(got) != 5 {
				t.Fatalf("%s: got %d channels, want 5", s.name, len(got))
			}
			for k, ch := range got {
				if ch == nil || len(ch) != 0 {
					t.Errorf("%s: channel %d = %v, want empty non-nil", s.name, k, ch)
				}
			}
		}
	}
}

func TestSpliceSingleChannel(t *testing.T) {
	input := counter(1000)
	for _, s := range strategies {
		got, err := s.p.Partition(1, input)
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if len(got) != 1 || !bytes.Equal(got[0], input) {
			t.Errorf("%s: single channel differs from input", s.name)
		}
	}
}

func TestSpliceMoreChannelsThanBytes(t *testing.T) {
	input := []byte{9, 8, 7}
	for _, s := range strategies {
		got, err := s.p.Partition(10, input)
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if len(got) != 10 {
			t.Fatalf("%s: got %d channels, want 10", s.name, len(got))
		}
		for k, ch := range got {
			if k < len(input) {
				if len(ch) != 1 || ch[0] != input[k] {
					t.Errorf("%s: channel %d = %v, want [%d]", s.name, k, ch, input[k])
				}
			} else if len(ch) != 0 {
				t.Errorf("%s: channel %d = %v, want empty", s.name, k, ch)
			}
		}
	}
}

func TestSpliceInvalidChannelCount(t *testing.T) {
	for _, s := range strategies {
		for _, channels := range []int{0, -1, math.MinInt} {
			got, err := s.p.Partition(channels, []byte{1, 2, 3})
			if !errors.Is(err, ErrInvalidChannelCount) {
				t.Errorf("%s: Partition(%d) error = %v, want ErrInvalidChannelCount", s.name, channels, err)
			}
			if got != nil {
				t.Errorf("%s: Partition(%d) returned output %v", s.name, channels, got)
			}
		}
	}
}

// TestSpliceProperties checks coverage, ordering and channel sizes on
// random inputs, and that every strategy agrees with Splice.
func TestSpliceProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := r.Intn(700)
		channels := 1 + r.Intn(20)
		input := make([]byte, n)
		r.Read(input)

		reference, err := Splice(channels, input)
		if err != nil {
			t.Fatal(err)
		}

		total := 0
		for k, ch := range reference {
			if want := ChannelLen(n, channels, k); len(ch) != want {
				t.Fatalf("n=%d c=%d: channel %d has %d bytes, want %d", n, channels, k, len(ch), want)
			}
			total += len(ch)
		}
		if total != n {
			t.Fatalf("n=%d c=%d: channel lengths sum to %d", n, channels, total)
		}

		merged, err := Merge(reference)
		if err != nil {
			t.Fatalf("n=%d c=%d: Merge: %v", n, channels, err)
		}
		if !bytes.Equal(merged, input) {
			t.Fatalf("n=%d c=%d: merged channels differ from input", n, channels)
		}

		for _, s := range strategies {
			got, err := s.p.Partition(channels, input)
			if err != nil {
				t.Fatalf("%s: %v", s.name, err)
			}
			if diff := cmp.Diff(reference, got); diff != "" {
				t.Fatalf("%s n=%d c=%d differs from Splice (-want +got):\n%s", s.name, n, channels, diff)
			}
		}
	}
}

func TestSpliceDoesNotModifyOrAliasInput(t *testing.T) {
	input := counter(257)
	original := bytes.Clone(input)

	for _, s := range strategies {
		got, err := s.p.Partition(4, input)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(input, original) {
			t.Fatalf("%s modified its input", s.name)
		}
		for k := range got {
			got[k][0] ^= 0xFF
		}
		if !bytes.Equal(input, original) {
			t.Errorf("%s: output aliases input", s.name)
		}
		for k := range got {
			if got[k][0] != original[k]^0xFF {
				t.Errorf("%s: channel %d shares memory with another channel", s.name, k)
			}
		}
	}
}

func TestSpliceParallelDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	input := make([]byte, 1<<16)
	r.Read(input)

	pool := NewPool(4)
	defer pool.Close()

	for _, p := range []Parallel{{}, {Workers: 3}, {Pool: pool}} {
		first, err := p.Partition(7, input)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 20; i++ {
			got, err := p.Partition(7, input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(first, got); diff != "" {
				t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
			}
		}
	}
}

func TestSpliceParallelPoolReuse(t *testing.T) {
	pool := NewPool(3)
	defer pool.Close()

	if pool.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", pool.Workers())
	}

	p := Parallel{Pool: pool}
	for channels := 1; channels <= 16; channels++ {
		input := counter(channels*13 + 5)
		want, _ := Splice(channels, input)
		got, err := p.Partition(channels, input)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("channels=%d mismatch (-want +got):\n%s", channels, diff)
		}
	}
}

func TestSpliceParallelClosedPool(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	got, err := Parallel{Pool: pool}.Partition(3, counter(10))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Splice(3, counter(10))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("closed pool mismatch (-want +got):\n%s", diff)
	}
}

func TestSpliceParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(2)
	defer pool.Close()

	for _, p := range []Parallel{{}, {Pool: pool}} {
		got, err := p.PartitionContext(ctx, 5, counter(100))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if got != nil {
			t.Errorf("canceled split returned partial output %v", got)
		}
	}

	got, err := SpliceParallelContext(context.Background(), 2, counter(4))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]byte{{0, 2}, {1, 3}}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSpliceParallelTaskFailure(t *testing.T) {
	errChannel := errors.New("channel failed")
	failing := func(data []byte, channels, k int) ([]byte, error) {
		if k == 3 {
			return nil, errChannel
		}
		return extract(data, channels, k)
	}

	pool := NewPool(3)
	defer pool.Close()

	for _, p := range []Parallel{{}, {Workers: 1}, {Workers: 4}, {Pool: pool}} {
		got, err := p.partition(context.Background(), 6, counter(100), failing)
		if !errors.Is(err, errChannel) {
			t.Errorf("%+v: error = %v, want %v", p, err, errChannel)
		}
		if got != nil {
			t.Errorf("%+v: failed split returned partial output %v", p, got)
		}
	}
}

func TestAllocateFailure(t *testing.T) {
	buf, err := allocate[byte](0, math.MaxInt)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("allocate(MaxInt) error = %v, want ErrAllocation", err)
	}
	if buf != nil {
		t.Error("failed allocation returned a buffer")
	}

	if _, err := allocate[byte](4, 2); !errors.Is(err, ErrAllocation) {
		t.Errorf("allocate(4, 2) error = %v, want ErrAllocation", err)
	}
}

func TestMaxChannelLen(t *testing.T) {
	tests := []struct {
		n, channels, want int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{10, 5, 2},
		{11, 3, 4},
		{7, 0, 0},
		{math.MaxInt, 1, math.MaxInt},
		{math.MaxInt, 2, math.MaxInt/2 + 1},
		{math.MaxInt, math.MaxInt, 1},
	}
	for _, tt := range tests {
		if got := MaxChannelLen(tt.n, tt.channels); got != tt.want {
			t.Errorf("MaxChannelLen(%d, %d) = %d, want %d", tt.n, tt.channels, got, tt.want)
		}
	}
}

func TestChannelLen(t *testing.T) {
	tests := []struct {
		n, channels, k, want int
	}{
		{11, 3, 0, 4},
		{11, 3, 1, 4},
		{11, 3, 2, 3},
		{3, 10, 2, 1},
		{3, 10, 3, 0},
		{3, 10, 9, 0},
		{0, 5, 0, 0},
		{8, 1, 0, 8},
		{8, 2, 2, 0},
		{8, 2, -1, 0},
		{math.MaxInt, 2, 1, math.MaxInt / 2},
	}
	for _, tt := range tests {
		if got := ChannelLen(tt.n, tt.channels, tt.k); got != tt.want {
			t.Errorf("ChannelLen(%d, %d, %d) = %d, want %d", tt.n, tt.channels, tt.k, got, tt.want)
		}
	}
}

func TestMergeRejectsBadLayout(t *testing.T) {
	tests := []struct {
		name     string
		channels [][]byte
		err      error
	}{
		{"none", nil, ErrInvalidChannelCount},
		{"trailing longer", [][]byte{{1}, {2, 3}}, ErrChannelLayout},
		{"gap", [][]byte{{1, 2, 3}, {4}}, ErrChannelLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Merge(tt.channels); !errors.Is(err, tt.err) {
				t.Errorf("Merge error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestMergeEmptyChannels(t *testing.T) {
	got, err := Merge([][]byte{{}, {}, {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Merge of empty channels = %v", got)
	}
}

func BenchmarkSimple(b *testing.B) {
	input := []byte{0, 1, 2, 3, 4, 5, 6}
	for _, s := range Strategies() {
		p := s.Partitioner()
		b.Run(s.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := p.Partition(4, input); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func benchmarkThroughput(b *testing.B, channels, maxPow int, strategies []Strategy) {
	for pow := 0; pow <= maxPow; pow++ {
		size := 1 << pow
		input := counter(size)
		for _, s := range strategies {
			p := s.Partitioner()
			b.Run(s.String()+"/"+byteSize(size), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := p.Partition(channels, input); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkThroughput(b *testing.B) {
	benchmarkThroughput(b, 5, 22, Strategies())
}

// BenchmarkThroughputPairs measures the two-channel word kernel.
func BenchmarkThroughputPairs(b *testing.B) {
	benchmarkThroughput(b, 2, 22, Strategies())
}

func BenchmarkThroughputSmall(b *testing.B) {
	benchmarkThroughput(b, 5, 10, []Strategy{StrategySequential, StrategyStepped})
}

func byteSize(n int) string {
	switch {
	case n >= 1<<20:
		return strconv.Itoa(n>>20) + "MiB"
	case n >= 1<<10:
		return strconv.Itoa(n>>10) + "KiB"
	default:
		return strconv.Itoa(n) + "B"
	}
}

func FuzzSplice(f *testing.F) {
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, uint8(3))
	f.Add([]byte{}, uint8(5))
	f.Add([]byte{0xFF}, uint8(1))

	f.Fuzz(func(t *testing.T, data []byte, c uint8) {
		channels := int(c)
		want, err := Splice(channels, data)
		if channels == 0 {
			if !errors.Is(err, ErrInvalidChannelCount) {
				t.Fatalf("Splice(0) error = %v", err)
			}
			return
		}
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range []Partitioner{Stepped{}, Parallel{Workers: 2}} {
			got, err := s.Partition(channels, data)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("%T differs from Splice (-want +got):\n%s", s, diff)
			}
		}
		merged, err := Merge(want)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(merged, data) {
			t.Fatal("Merge did not restore input")
		}
	})
}
