package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/y86sim/config"
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/loader"
	"github.com/sarchlab/y86sim/timing/core"
)

type options struct {
	configPath string
	maxCycles  uint64
	entryPC    int32
	traceDir   string
	logLevel   string
	verbose    bool
	dump       bool
	check      bool
	dcache     bool
	jobs       int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "y86sim [flags] program.yo...",
		Short: "Cycle-accurate Y86 pipeline simulator",
		Long: `y86sim runs Y86 object files (.yo) on a five-stage pipeline model
with forwarding, load/use stalls, branch misprediction recovery and
fault draining. Several programs are simulated concurrently.
`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			return runPrograms(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a JSON or YAML configuration file")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Cycle limit (0 for no limit)")
	flags.Int32Var(&opts.entryPC, "entry", 0, "Address of the first instruction")
	flags.StringVar(&opts.traceDir, "trace", "", "Directory to write <program>.txt cycle traces to")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (panic, fatal, error, warning, info, debug, trace)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every cycle")
	flags.BoolVar(&opts.dump, "dump", false, "Pretty-print the final core state")
	flags.BoolVar(&opts.check, "check", false, "Cross-check the final registers against the functional emulator")
	flags.BoolVar(&opts.dcache, "dcache", false, "Profile data accesses with the data-cache model")
	flags.IntVarP(&opts.jobs, "jobs", "j", 4, "Number of programs simulated at once")

	return cmd
}

// resolveConfig loads the configuration file, if any, and applies the
// flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("max-cycles") {
		cfg.MaxCycles = opts.maxCycles
	}
	if flags.Changed("entry") {
		cfg.EntryPC = opts.entryPC
	}
	if flags.Changed("trace") {
		cfg.TraceDir = opts.traceDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	if opts.dcache {
		cfg.DataCache.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// result is the outcome of one simulated program.
type result struct {
	path     string
	status   insts.Status
	stats    core.Stats
	snapshot core.Snapshot
	runErr   error
	mismatch []string
}

func runPrograms(
	ctx context.Context,
	stdout, stderr io.Writer,
	cfg *config.Config,
	opts *options,
	paths []string,
) error {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(cfg.Level())

	if cfg.TraceDir != "" {
		if err := os.MkdirAll(cfg.TraceDir, 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
	}

	results := make([]result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := simulate(cfg, logger.WithField("program", filepath.Base(path)), path, opts.check)
			if err != nil {
				return err
			}
			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	printer := pp.New()
	printer.SetColoringEnabled(false)

	failed := 0
	for _, res := range results {
		report(stdout, res)
		if opts.dump {
			_, _ = printer.Fprintln(stdout, res.snapshot)
		}
		if res.runErr != nil || len(res.mismatch) > 0 {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d programs did not complete cleanly", failed, len(paths))
	}

	return nil
}

// simulate runs one program. Errors that prevent the run from starting
// are returned; the outcome of the run itself is recorded in the result.
func simulate(cfg *config.Config, logger logrus.FieldLogger, path string, check bool) (result, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return result{}, err
	}

	coreOpts := []core.Option{
		core.WithLogger(logger),
		core.WithMaxCycles(cfg.MaxCycles),
	}
	if cfg.DataCache.Enabled {
		coreOpts = append(coreOpts, core.WithDataCache(cfg.DataCache.Config))
	}

	c := core.NewCore(coreOpts...)
	c.LoadAt(prog.Image, cfg.EntryPC)

	res := result{path: path}
	res.status, res.runErr = c.RunToCompletion()
	res.stats = c.Stats()
	res.snapshot, err = c.Snapshot()
	if err != nil {
		return result{}, err
	}

	if cfg.TraceDir != "" {
		if err := writeTrace(c, cfg.TraceDir, path); err != nil {
			return result{}, err
		}
	}

	if check && res.runErr == nil {
		res.mismatch = crossCheck(prog.Image, cfg, res.snapshot)
	}

	return res, nil
}

func writeTrace(c *core.Core, dir, path string) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".txt"

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	if err := c.WriteTrace(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write trace for %s: %w", path, err)
	}

	return f.Close()
}

// crossCheck runs the program on the functional emulator and lists the
// architected state that differs from the pipeline's.
func crossCheck(image *emu.Image, cfg *config.Config, snap core.Snapshot) []string {
	emulator := emu.NewEmulator(image,
		emu.WithEntryPC(cfg.EntryPC),
		emu.WithMaxInstructions(cfg.MaxCycles),
	)
	status := emulator.Run()

	var diffs []string
	if status != snap.Status {
		diffs = append(diffs, fmt.Sprintf("status: pipeline %s, emulator %s", snap.Status, status))
	}

	regs := emulator.RegFile()
	for r := insts.Reg(0); r < insts.NumRegs; r++ {
		if got, want := snap.Registers[r], regs.ReadReg(r); got != want {
			diffs = append(diffs, fmt.Sprintf("%s: pipeline 0x%08x, emulator 0x%08x",
				r, uint32(got), uint32(want)))
		}
	}
	if snap.CC != regs.CC {
		diffs = append(diffs, fmt.Sprintf("cc: pipeline %+v, emulator %+v", snap.CC, regs.CC))
	}

	return diffs
}

func report(w io.Writer, res result) {
	s := res.stats
	fmt.Fprintf(w, "%s: %s after %d cycles, %d instructions (CPI %.2f)\n",
		res.path, res.status, s.Cycles, s.Instructions, s.CPI())

	if res.runErr != nil {
		if errors.Is(res.runErr, core.ErrMaxCycles) {
			fmt.Fprintf(w, "  did not terminate: %v\n", res.runErr)
		} else {
			fmt.Fprintf(w, "  error: %v\n", res.runErr)
		}
	}

	fmt.Fprintf(w, "  stalls %d, bubbles %d, load/use %d, mispredicts %d, ret drains %d, fault drains %d, forwards %d\n",
		s.Stalls, s.Bubbles, s.LoadUseHazards, s.Mispredictions, s.ReturnDrains, s.FaultDrains, s.Forwards)

	if s.DataCache != nil {
		dc := s.DataCache
		fmt.Fprintf(w, "  dcache: %d reads, %d writes, %d hits, %d misses (%.1f%% hit rate)\n",
			dc.Reads, dc.Writes, dc.Hits, dc.Misses, dc.HitRate()*100)
	}

	for r := insts.Reg(0); r < insts.NumRegs; r++ {
		fmt.Fprintf(w, "  %s = 0x%08x\n", r, uint32(res.snapshot.Registers[r]))
	}
	cc := res.snapshot.CC
	fmt.Fprintf(w, "  ZF=%d SF=%d OF=%d\n", b2i(cc.ZF), b2i(cc.SF), b2i(cc.OF))

	for _, d := range res.mismatch {
		fmt.Fprintf(w, "  mismatch: %s\n", d)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
