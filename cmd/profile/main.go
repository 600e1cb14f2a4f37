// Package main provides a profiling wrapper for y86sim to identify
// performance bottlenecks of the simulator itself.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/loader"
	"github.com/sarchlab/y86sim/timing/pipeline"
)

type profileOptions struct {
	timing     bool
	cpuProfile string
	memProfile string
	repeat     int
	maxCycles  uint64
}

func main() {
	if err := newProfileCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newProfileCmd() *cobra.Command {
	opts := &profileOptions{}

	cmd := &cobra.Command{
		Use:           "profile [flags] program.yo",
		Short:         "Profile the simulator on one Y86 program",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.OutOrStdout(), opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.timing, "timing", true, "Run the pipeline model (false runs the functional emulator)")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to file")
	flags.StringVar(&opts.memProfile, "memprofile", "", "write memory profile to file")
	flags.IntVar(&opts.repeat, "repeat", 1000, "number of times to run the program")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", pipeline.DefaultMaxCycles, "cycle or instruction limit per run (0 = unlimited)")

	return cmd
}

func runProfile(out io.Writer, opts *profileOptions, path string) error {
	prog, err := loader.Load(path)
	if err != nil {
		return err
	}

	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("creating CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	_, _ = fmt.Fprintf(out, "Loaded: %s (%d bytes)\n", path, prog.Image.Len())

	start := time.Now()

	var (
		status     string
		instrCount uint64
		cycles     uint64
	)
	for i := 0; i < opts.repeat; i++ {
		if opts.timing {
			stats, s := runTimingProfile(prog.Image, opts.maxCycles)
			instrCount += stats.Instructions
			cycles += stats.Cycles
			status = s
		} else {
			n, s := runEmulationProfile(prog.Image, opts.maxCycles)
			instrCount += n
			status = s
		}
	}

	elapsed := time.Since(start)

	if opts.memProfile != "" {
		f, err := os.Create(opts.memProfile)
		if err != nil {
			return fmt.Errorf("creating memory profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("writing memory profile: %w", err)
		}
	}

	_, _ = fmt.Fprintf(out, "\nProfiling Results:\n")
	_, _ = fmt.Fprintf(out, "Final status: %s\n", status)
	_, _ = fmt.Fprintf(out, "Runs: %d\n", opts.repeat)
	_, _ = fmt.Fprintf(out, "Instructions executed: %d\n", instrCount)
	if opts.timing {
		_, _ = fmt.Fprintf(out, "Cycles simulated: %d\n", cycles)
	}
	_, _ = fmt.Fprintf(out, "Elapsed time: %v\n", elapsed)
	if instrCount > 0 && elapsed > 0 {
		_, _ = fmt.Fprintf(out, "Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}

	return nil
}

// runEmulationProfile runs the program in functional emulation mode.
func runEmulationProfile(image *emu.Image, limit uint64) (uint64, string) {
	emulator := emu.NewEmulator(image, emu.WithMaxInstructions(limit))
	status := emulator.Run()
	return emulator.InstructionCount(), status.String()
}

// runTimingProfile runs the program on the pipeline model.
func runTimingProfile(image *emu.Image, limit uint64) (pipeline.Statistics, string) {
	pipe := pipeline.NewPipeline(&emu.RegFile{}, emu.NewMemory(image), pipeline.WithMaxCycles(limit))
	status := pipe.Run()
	return pipe.Stats(), status.String()
}
