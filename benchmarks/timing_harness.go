// Package benchmarks provides a timing benchmark harness for the Y86
// pipeline model.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/timing/cache"
	"github.com/sarchlab/y86sim/timing/core"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Status is the final global status of the run
	Status string `json:"status"`

	// EAX is the final value of %eax
	EAX int32 `json:"eax"`

	// Passed is true when the run halted with the expected %eax
	Passed bool `json:"passed"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of fetch stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// Bubbles is the number of bubbles injected
	Bubbles uint64 `json:"bubbles"`

	// LoadUseHazards is the number of load/use stall cycles
	LoadUseHazards uint64 `json:"load_use_hazards"`

	// ReturnDrains is the number of cycles spent waiting on ret
	ReturnDrains uint64 `json:"return_drains"`

	// Mispredictions is the number of mispredicted jumps
	Mispredictions uint64 `json:"mispredictions"`

	// Forwards is the number of forwarded decode operands
	Forwards uint64 `json:"forwards"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the Y86 machine code, loaded at address 0
	Program []byte

	// ExpectedEAX is the value %eax must hold when the program halts
	ExpectedEAX int32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache attaches the data-cache profiler
	EnableDCache bool

	// DataCache is the profiler geometry used when EnableDCache is set
	DataCache cache.Config

	// MaxCycles bounds every run
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose logs every simulated cycle to Output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: true,
		DataCache:    cache.DefaultConfig(),
		MaxCycles:    100000,
		Output:       os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

func (h *Harness) logger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(h.config.Output)
	if h.config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	opts := []core.Option{
		core.WithLogger(h.logger().WithField("benchmark", bench.Name)),
		core.WithMaxCycles(h.config.MaxCycles),
	}
	if h.config.EnableDCache {
		opts = append(opts, core.WithDataCache(h.config.DataCache))
	}

	c := core.NewCore(opts...)
	c.Load(emu.NewImage(bench.Program))

	start := time.Now()
	status, err := c.RunToCompletion()
	wallTime := time.Since(start)

	stats := c.Stats()
	eax := c.Registers()[insts.RegEAX]

	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Status:              status.String(),
		EAX:                 eax,
		Passed:              err == nil && status == insts.StatusHalt && eax == bench.ExpectedEAX,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		Bubbles:             stats.Bubbles,
		LoadUseHazards:      stats.LoadUseHazards,
		ReturnDrains:        stats.ReturnDrains,
		Mispredictions:      stats.Mispredictions,
		Forwards:            stats.Forwards,
		WallTime:            wallTime,
	}

	if stats.DataCache != nil {
		result.DCacheHits = stats.DataCache.Hits
		result.DCacheMisses = stats.DataCache.Misses
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== Y86 Pipeline Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		verdict := "ok"
		if !r.Passed {
			verdict = "FAILED"
		}

		_, _ = fmt.Fprintf(out, "Benchmark: %s [%s]\n", r.Name, verdict)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Status: %s, %%eax = 0x%08x\n", r.Status, uint32(r.EAX))
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(out, "  Bubbles:              %d\n", r.Bubbles)
		_, _ = fmt.Fprintf(out, "  Load/Use Hazards:     %d\n", r.LoadUseHazards)
		_, _ = fmt.Fprintf(out, "  Return Drains:        %d\n", r.ReturnDrains)
		_, _ = fmt.Fprintf(out, "  Mispredictions:       %d\n", r.Mispredictions)
		_, _ = fmt.Fprintf(out, "  Forwards:             %d\n", r.Forwards)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(out, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(out, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(out, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,status,passed,cycles,instructions,cpi,stalls,bubbles,load_use,ret_drains,mispredicts,forwards,dcache_hits,dcache_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%t,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Status,
			r.Passed,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.Bubbles,
			r.LoadUseHazards,
			r.ReturnDrains,
			r.Mispredictions,
			r.Forwards,
			r.DCacheHits,
			r.DCacheMisses,
		)
	}
}

// Helper functions for building Y86 programs

// BuildProgram concatenates encoded instructions and data.
func BuildProgram(parts ...[]byte) []byte {
	var program []byte
	for _, p := range parts {
		program = append(program, p...)
	}
	return program
}

func regByte(hi, lo insts.Reg) byte {
	return byte(hi)<<4 | byte(lo)
}

// EncodeWord encodes a little-endian 32-bit data word.
func EncodeWord(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

// EncodePad encodes n zero bytes.
func EncodePad(n int) []byte {
	return make([]byte, n)
}

// EncodeHALT encodes halt.
func EncodeHALT() []byte {
	return []byte{byte(insts.IcodeHALT) << 4}
}

// EncodeRRMOVL encodes rrmovl rA, rB.
func EncodeRRMOVL(ra, rb insts.Reg) []byte {
	return []byte{byte(insts.IcodeRRMOVL) << 4, regByte(ra, rb)}
}

// EncodeIRMOVL encodes irmovl $v, rB.
func EncodeIRMOVL(v int32, rb insts.Reg) []byte {
	return append([]byte{byte(insts.IcodeIRMOVL) << 4, regByte(insts.RegNone, rb)}, EncodeWord(v)...)
}

// EncodeRMMOVL encodes rmmovl rA, d(rB).
func EncodeRMMOVL(ra insts.Reg, d int32, rb insts.Reg) []byte {
	return append([]byte{byte(insts.IcodeRMMOVL) << 4, regByte(ra, rb)}, EncodeWord(d)...)
}

// EncodeMRMOVL encodes mrmovl d(rB), rA.
func EncodeMRMOVL(d int32, rb, ra insts.Reg) []byte {
	return append([]byte{byte(insts.IcodeMRMOVL) << 4, regByte(ra, rb)}, EncodeWord(d)...)
}

// EncodeOPL encodes an OPl instruction computing rB = rB fun rA.
func EncodeOPL(fun insts.ALUFunc, ra, rb insts.Reg) []byte {
	return []byte{byte(insts.IcodeOPL)<<4 | byte(fun), regByte(ra, rb)}
}

// EncodeJXX encodes a jump to dest taken under cond.
func EncodeJXX(cond insts.Cond, dest int32) []byte {
	return append([]byte{byte(insts.IcodeJXX)<<4 | byte(cond)}, EncodeWord(dest)...)
}

// EncodeCALL encodes call dest.
func EncodeCALL(dest int32) []byte {
	return append([]byte{byte(insts.IcodeCALL) << 4}, EncodeWord(dest)...)
}

// EncodeRET encodes ret.
func EncodeRET() []byte {
	return []byte{byte(insts.IcodeRET) << 4}
}

// EncodePUSHL encodes pushl rA.
func EncodePUSHL(ra insts.Reg) []byte {
	return []byte{byte(insts.IcodePUSHL) << 4, regByte(ra, insts.RegNone)}
}

// EncodePOPL encodes popl rA.
func EncodePOPL(ra insts.Reg) []byte {
	return []byte{byte(insts.IcodePOPL) << 4, regByte(ra, insts.RegNone)}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	DCacheEnabled bool         `json:"dcache_enabled"`
	DataCache     cache.Config `json:"data_cache"`
	MaxCycles     uint64       `json:"max_cycles"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Failed is the number of benchmarks that did not pass
	Failed int `json:"failed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if !r.Passed {
			summary.Failed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				DCacheEnabled: h.config.EnableDCache,
				DataCache:     h.config.DataCache,
				MaxCycles:     h.config.MaxCycles,
			},
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
