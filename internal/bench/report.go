package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/sys/cpu"
)

// MachineInfo describes the host a sweep ran on. Break-even points move
// with core count and vector width, so reports carry it alongside results.
type MachineInfo struct {
	GOOS       string
	GOARCH     string
	NumCPU     int
	GOMAXPROCS int
	Features   []string
}

// Machine returns information about the current host.
func Machine() MachineInfo {
	m := MachineInfo{
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	add := func(name string, ok bool) {
		if ok {
			m.Features = append(m.Features, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add("sse2", cpu.X86.HasSSE2)
		add("sse41", cpu.X86.HasSSE41)
		add("avx", cpu.X86.HasAVX)
		add("avx2", cpu.X86.HasAVX2)
		add("avx512f", cpu.X86.HasAVX512F)
		add("avx512bw", cpu.X86.HasAVX512BW)
	case "arm64":
		add("asimd", cpu.ARM64.HasASIMD)
		add("sve", cpu.ARM64.HasSVE)
		add("sve2", cpu.ARM64.HasSVE2)
	}
	return m
}

func (m MachineInfo) String() string {
	features := "none"
	if len(m.Features) > 0 {
		features = strings.Join(m.Features, ",")
	}
	return fmt.Sprintf("%s/%s cpus=%d gomaxprocs=%d features=%s",
		m.GOOS, m.GOARCH, m.NumCPU, m.GOMAXPROCS, features)
}

// WriteTable writes results as an aligned text table.
func WriteTable(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "strategy\tsize\titerations\tns/op\tMiB/s\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t\n",
			r.Strategy, FormatSize(r.Size), r.Iterations, r.PerOp.Nanoseconds(), r.Throughput()/(1<<20))
	}
	return tw.Flush()
}

// WriteCSV writes results as CSV with a header row. Sizes are in bytes and
// durations in nanoseconds.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"strategy", "size", "iterations", "ns_per_op", "bytes_per_sec"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.Strategy.String(),
			strconv.Itoa(r.Size),
			strconv.Itoa(r.Iterations),
			strconv.FormatInt(r.PerOp.Nanoseconds(), 10),
			strconv.FormatFloat(r.Throughput(), 'f', 0, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatSize formats a byte count using binary units, e.g. 64KiB.
func FormatSize(n int) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return strconv.Itoa(n>>30) + "GiB"
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.Itoa(n>>20) + "MiB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.Itoa(n>>10) + "KiB"
	default:
		return strconv.Itoa(n) + "B"
	}
}
