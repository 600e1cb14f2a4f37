// Command benchmark runs the y86sim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	--format     Output format: text, csv or json (default: text)
//	--core       Run only the three core benchmarks
//	--no-dcache  Disable the data-cache profiler
//	-v           Log every simulated cycle
//
// Example:
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark --format csv > results.csv
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/benchmarks"
)

func main() {
	if err := newBenchmarkCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newBenchmarkCmd() *cobra.Command {
	var (
		format   string
		coreOnly bool
		noDCache bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:           "benchmark",
		Short:         "Run the Y86 pipeline microbenchmarks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config := benchmarks.DefaultConfig()
			config.EnableDCache = !noDCache
			config.Verbose = verbose
			config.Output = cmd.OutOrStdout()

			harness := benchmarks.NewHarness(config)
			if coreOnly {
				harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}

			results := harness.RunAll()

			switch format {
			case "text":
				harness.PrintResults(results)
			case "csv":
				harness.PrintCSV(results)
			case "json":
				if err := harness.PrintJSON(results); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			if failed := benchmarks.Summarize(results).Failed; failed > 0 {
				return fmt.Errorf("%d benchmarks failed", failed)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", "text", "Output format: text, csv or json")
	flags.BoolVar(&coreOnly, "core", false, "Run only the three core benchmarks")
	flags.BoolVar(&noDCache, "no-dcache", false, "Disable the data-cache profiler")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log every simulated cycle")

	return cmd
}
