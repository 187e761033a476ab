// splice splits interleaved byte streams into channel planes.
//
// Usage:
//
//	splice split -c N [-s strategy] [-o dir] <file>
//	splice pack -c N [--codec zlib] [--level -1] [--predict] [--solid] <in> <out>
//	splice unpack <in> <out>
//	splice info <file>
//
// split writes one raw file per channel, named <base>.ch0, <base>.ch1, ...
// pack and unpack convert between a raw stream and a planar container.
//
// Exit codes:
//
//	0: Success
//	1: Runtime error (I/O, corrupt container)
//	2: Usage error
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/latk/slicing-perf/compression"
	"github.com/latk/slicing-perf/container"
	"github.com/latk/slicing-perf/internal/logging"
	"github.com/latk/slicing-perf/splice"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks errors caused by bad command lines.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s: expected %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		fmt.Fprintf(stderr, "splice: %v\n", err)
		fmt.Fprintln(stderr, "Run 'splice --help' for usage.")
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

type app struct {
	stdout   io.Writer
	logLevel string
	logger   *slog.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	root := &cobra.Command{
		Use:           "splice",
		Short:         "Split interleaved byte streams into channel planes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(stderr, a.logLevel, logging.FormatText)
			if err != nil {
				return usageError{err}
			}
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("missing command")
			}
			return usagef("unknown command %q", args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(a.splitCommand(), a.packCommand(), a.unpackCommand(), a.infoCommand())
	return root
}

// partitioner maps a strategy flag to a Partitioner that honours the
// worker limit.
func partitioner(s splice.Strategy, workers int) splice.Partitioner {
	par := splice.Parallel{Workers: workers}
	switch s {
	case splice.StrategyParallel:
		return par
	case splice.StrategyAuto:
		return splice.Selector{Parallel: par}
	default:
		return s.Partitioner()
	}
}

type splitFlags struct {
	channels int
	strategy string
	workers  int
}

func (f *splitFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.channels, "channels", "c", 0, "number of interleaved channels (required)")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "auto", "auto, sequential, stepped or parallel")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "parallel workers, 0 for GOMAXPROCS")
}

func (f *splitFlags) partitioner() (splice.Partitioner, error) {
	if f.channels < 1 {
		return nil, usagef("--channels must be at least 1, got %d", f.channels)
	}
	if f.workers < 0 {
		return nil, usagef("--workers must not be negative, got %d", f.workers)
	}
	s, err := splice.ParseStrategy(f.strategy)
	if err != nil {
		return nil, usageError{err}
	}
	return partitioner(s, f.workers), nil
}

func (a *app) splitCommand() *cobra.Command {
	var (
		flags  splitFlags
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "split -c N [-s strategy] [-o dir] <file>",
		Short: "Write each channel of a file to its own raw file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.partitioner()
			if err != nil {
				return err
			}
			in := args[0]
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}

			start := time.Now()
			planes, err := p.Partition(flags.channels, data)
			if err != nil {
				return fmt.Errorf("split %s: %w", in, err)
			}
			a.logger.Info("split", "file", in, "bytes", len(data), "channels", flags.channels, "elapsed", time.Since(start))

			dir := outDir
			if dir == "" {
				dir = filepath.Dir(in)
			}
			base := filepath.Join(dir, filepath.Base(in))
			for k, plane := range planes {
				name := base + ".ch" + strconv.Itoa(k)
				if err := os.WriteFile(name, plane, 0o644); err != nil {
					return err
				}
				a.logger.Debug("wrote channel", "file", name, "bytes", len(plane))
			}
			fmt.Fprintf(a.stdout, "%s: %d bytes -> %d channels\n", in, len(data), len(planes))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: next to the input)")
	return cmd
}

func (a *app) packCommand() *cobra.Command {
	var (
		flags     splitFlags
		codecName string
		level     int
		predict   bool
		solid     bool
	)
	cmd := &cobra.Command{
		Use:   "pack -c N [--codec zlib] [--level -1] [--predict] [--solid] <in> <out>",
		Short: "Split a file into channels and compress them into a container",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.partitioner()
			if err != nil {
				return err
			}
			codec, err := compression.ParseCodec(codecName)
			if err != nil {
				return usageError{err}
			}
			opts := container.Options{
				Channels:  flags.channels,
				Codec:     codec,
				Level:     compression.Level(level),
				Predictor: predict,
				Solid:     solid,
				Splitter:  p,
				Workers:   flags.workers,
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			start := time.Now()
			blob, err := container.Encode(data, opts)
			if err != nil {
				return err
			}
			a.logger.Info("packed",
				"in", args[0],
				"out", args[1],
				"codec", codec,
				"raw", len(data),
				"packed", len(blob),
				"elapsed", time.Since(start))
			return os.WriteFile(args[1], blob, 0o644)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&codecName, "codec", compression.Zlib.String(), "none, zlib or zstd")
	cmd.Flags().IntVar(&level, "level", int(compression.LevelDefault), "compression level, -1 for the codec default")
	cmd.Flags().BoolVar(&predict, "predict", true, "delta-encode each channel before compression")
	cmd.Flags().BoolVar(&solid, "solid", false, "compress all channels as one stream")
	return cmd
}

func (a *app) unpackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <in> <out>",
		Short: "Restore the original stream from a container",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			data, err := container.Decode(blob)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.logger.Info("unpacked", "in", args[0], "out", args[1], "bytes", len(data))
			return os.WriteFile(args[1], data, 0o644)
		},
	}
}

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Describe a container without decompressing it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			h, stats, err := container.Stats(blob)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return writeInfo(a.stdout, args[0], h, stats)
		},
	}
}

func writeInfo(w io.Writer, name string, h container.Header, stats []container.PlaneStats) error {
	fmt.Fprintf(w, "%s: version %d, %s, %d channels, %d bytes\n", name, h.Version, h.Codec, h.Channels, h.Length)
	fmt.Fprintf(w, "predictor: %t, solid: %t\n", h.Predictor, h.Solid)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "stream\traw\tcompressed\tratio\t")
	for i, s := range stats {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.2f\t\n", i, s.Raw, s.Compressed, s.Ratio())
	}
	return tw.Flush()
}
