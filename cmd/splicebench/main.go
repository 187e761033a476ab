// splicebench measures partitioning throughput over a range of input sizes.
//
// Usage:
//
//	splicebench [--channels 5] [--max-pow 26] [--min-time 100ms]
//	            [--strategies sequential,stepped,parallel] [--workers 0]
//	            [--format table|csv] [--calibrate] [--log-level warn]
//
// Inputs run from 1 byte to 2^max-pow bytes in powers of two. With
// --calibrate, the selector thresholds derived from the sweep are printed
// after the results.
//
// Exit codes:
//
//	0: Success
//	1: Measurement failed
//	2: Usage error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/latk/slicing-perf/internal/bench"
	"github.com/latk/slicing-perf/internal/logging"
	"github.com/latk/slicing-perf/splice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newCommand(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		fmt.Fprintf(stderr, "splicebench: %v\n", err)
		fmt.Fprintln(stderr, "Run 'splicebench --help' for usage.")
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func newCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := bench.DefaultConfig()
	var (
		strategies []string
		format     string
		logLevel   string
		calibrate  bool
		workers    int
	)

	cmd := &cobra.Command{
		Use:           "splicebench",
		Short:         "Measure splice strategies across input sizes",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageError{fmt.Errorf("unexpected argument %q", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(stderr, logLevel, logging.FormatText)
			if err != nil {
				return usageError{err}
			}
			if format != "table" && format != "csv" {
				return usageError{fmt.Errorf("--format must be table or csv, got %q", format)}
			}
			if workers < 0 {
				return usageError{fmt.Errorf("--workers must not be negative, got %d", workers)}
			}

			cfg.Strategies = make([]splice.Strategy, 0, len(strategies))
			for _, name := range strategies {
				s, err := splice.ParseStrategy(name)
				if err != nil {
					return usageError{err}
				}
				if s == splice.StrategyAuto {
					return usageError{errors.New("--strategies takes concrete strategies, not auto")}
				}
				cfg.Strategies = append(cfg.Strategies, s)
			}
			cfg.Parallel = splice.Parallel{Workers: workers}
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}

			if format == "table" {
				fmt.Fprintf(stdout, "# %s\n", bench.Machine())
				fmt.Fprintf(stdout, "# channels=%d sizes=1..%s min-time=%v\n",
					cfg.Channels, bench.FormatSize(1<<cfg.MaxPow), cfg.MinTime)
			}

			logger.Info("starting sweep", "channels", cfg.Channels, "max_pow", cfg.MaxPow, "strategies", len(cfg.Strategies))
			results, err := bench.Run(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			if format == "csv" {
				err = bench.WriteCSV(stdout, results)
			} else {
				err = bench.WriteTable(stdout, results)
			}
			if err != nil || !calibrate {
				return err
			}

			t, err := bench.Calibrate(results)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "# thresholds: small=%d large=%d\n", t.Small, t.Large)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	names := make([]string, 0, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		names = append(names, s.String())
	}

	f := cmd.Flags()
	f.IntVarP(&cfg.Channels, "channels", "c", cfg.Channels, "channels per split")
	f.IntVar(&cfg.MaxPow, "max-pow", cfg.MaxPow, "largest input is 2^max-pow bytes")
	f.DurationVar(&cfg.MinTime, "min-time", cfg.MinTime, "minimum measuring time per strategy and size")
	f.StringSliceVar(&strategies, "strategies", names, "strategies to measure")
	f.IntVarP(&workers, "workers", "w", 0, "parallel workers, 0 for GOMAXPROCS")
	f.StringVar(&format, "format", "table", "output format: table or csv")
	f.BoolVar(&calibrate, "calibrate", false, "print selector thresholds derived from the sweep")
	f.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	return cmd
}
