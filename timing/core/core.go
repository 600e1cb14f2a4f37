// Package core provides the cycle-accurate Y86 core model.
// It wraps the pipeline implementation to provide a high-level interface
// for loading a program, stepping or running it, and inspecting the
// result.
package core

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/timing/cache"
	"github.com/sarchlab/y86sim/timing/pipeline"
	"github.com/sarchlab/y86sim/trace"
)

var (
	// ErrNotLoaded is returned when the core is driven before a program
	// has been loaded.
	ErrNotLoaded = errors.New("core: no program loaded")

	// ErrMaxCycles is returned when the cycle limit is reached before the
	// program halts or faults.
	ErrMaxCycles = errors.New("core: cycle limit reached")
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of fetch stall cycles.
	Stalls uint64
	// Bubbles is the number of bubbles injected.
	Bubbles uint64
	// LoadUseHazards is the number of load/use stall cycles.
	LoadUseHazards uint64
	// Mispredictions is the number of mispredicted jumps.
	Mispredictions uint64
	// ReturnDrains is the number of cycles spent waiting on ret.
	ReturnDrains uint64
	// Forwards is the number of forwarded decode operands.
	Forwards uint64
	// FaultDrains is the number of cycles spent draining after a fault.
	FaultDrains uint64

	// DataCache holds data-cache profiler statistics when enabled.
	DataCache *cache.Statistics
}

// CPI returns the cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Snapshot is a copy of the visible core state.
type Snapshot struct {
	Cycle  uint64
	PC     int32
	Status insts.Status
	Halted bool

	Registers [insts.NumRegs]int32
	CC        emu.ConditionCodes

	F pipeline.FetchRegister
	D pipeline.DecodeRegister
	E pipeline.ExecuteRegister
	M pipeline.MemoryRegister
	W pipeline.WritebackRegister

	// Memory holds every word written or read by the program.
	Memory map[int32]int32
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger used for load, cycle and termination
// events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithMaxCycles sets the cycle limit of RunToCompletion.
func WithMaxCycles(max uint64) Option {
	return func(c *Core) {
		c.maxCycles = max
	}
}

// WithDataCache attaches a data-cache profiler to every loaded program.
func WithDataCache(config cache.Config) Option {
	return func(c *Core) {
		c.dataCache = &config
	}
}

// Core represents a cycle-accurate Y86 core model.
// All methods are safe for concurrent use; accessors return copies.
type Core struct {
	mu sync.Mutex

	pipeline *pipeline.Pipeline
	regFile  *emu.RegFile
	memory   *emu.Memory
	image    *emu.Image

	maxCycles uint64
	entryPC   int32
	dataCache *cache.Config

	logger logrus.FieldLogger
}

// NewCore creates a Core with no program loaded.
func NewCore(opts ...Option) *Core {
	c := &Core{
		maxCycles: pipeline.DefaultMaxCycles,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		c.logger = logger
	}

	return c
}

// Configure sets the cycle limit. A value of 0 removes the limit.
func (c *Core) Configure(maxCycles uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxCycles = maxCycles
	if c.pipeline != nil {
		c.pipeline.SetMaxCycles(maxCycles)
	}
}

// Load installs a program image and resets all state. Execution starts
// at address 0.
func (c *Core) Load(image *emu.Image) {
	c.LoadAt(image, 0)
}

// LoadAt installs a program image and resets all state. Execution starts
// at entryPC.
func (c *Core) LoadAt(image *emu.Image, entryPC int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.image = image
	c.entryPC = entryPC
	c.build()

	c.logger.WithFields(logrus.Fields{
		"bytes": image.Len(),
		"entry": fmt.Sprintf("0x%x", entryPC),
	}).Info("program loaded")
}

func (c *Core) build() {
	c.regFile = &emu.RegFile{}
	c.memory = emu.NewMemory(c.image)

	opts := []pipeline.PipelineOption{
		pipeline.WithMaxCycles(c.maxCycles),
		pipeline.WithEntryPC(c.entryPC),
	}
	if c.dataCache != nil {
		opts = append(opts, pipeline.WithDataCache(*c.dataCache))
	}

	c.pipeline = pipeline.NewPipeline(c.regFile, c.memory, opts...)
}

// Reset returns the loaded program to its initial state.
func (c *Core) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return ErrNotLoaded
	}

	c.pipeline.Reset()
	c.logger.Info("core reset")

	return nil
}

// Step executes one cycle. It returns true while the program is still
// running. Stepping a terminated program does nothing.
func (c *Core) Step() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return false, ErrNotLoaded
	}

	c.tick()

	return !c.pipeline.Done(), nil
}

// tick runs one cycle and logs it.
func (c *Core) tick() {
	if c.pipeline.Done() {
		return
	}

	c.pipeline.Tick()

	rec, _ := c.pipeline.LastRecord()
	c.logger.WithFields(logrus.Fields{
		"cycle":  rec.Cycle,
		"pc":     fmt.Sprintf("0x%x", rec.FetchPC),
		"w_stat": rec.W.Stat,
		"f":      rec.Controls.F,
		"d":      rec.Controls.D,
		"e":      rec.Controls.E,
		"m":      rec.Controls.M,
		"w":      rec.Controls.W,
	}).Debug("cycle")

	if c.pipeline.Halted() {
		c.logger.WithFields(logrus.Fields{
			"cycle":  rec.Cycle,
			"status": c.pipeline.Status(),
		}).Info("program terminated")
	}
}

// RunToCompletion executes cycles until the program halts, faults or the
// cycle limit is reached. It returns the global status. When the limit
// is reached first the error wraps ErrMaxCycles.
func (c *Core) RunToCompletion() (insts.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return insts.StatusOK, ErrNotLoaded
	}

	for !c.pipeline.Done() {
		c.tick()
	}

	status := c.pipeline.Status()
	if !c.pipeline.Halted() {
		c.logger.WithField("cycles", c.pipeline.Stats().Cycles).Warn("cycle limit reached")
		return status, fmt.Errorf("%w after %d cycles", ErrMaxCycles, c.pipeline.Stats().Cycles)
	}

	return status, nil
}

// Halted returns true once the program has halted or faulted.
func (c *Core) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pipeline != nil && c.pipeline.Halted()
}

// GlobalStatus returns the last non-bubble status retired.
func (c *Core) GlobalStatus() insts.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return insts.StatusOK
	}
	return c.pipeline.Status()
}

// Log returns a copy of the cycle log.
func (c *Core) Log() []pipeline.CycleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return nil
	}
	return c.pipeline.Log()
}

// Registers returns a copy of the register file.
func (c *Core) Registers() [insts.NumRegs]int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.regFile == nil {
		return [insts.NumRegs]int32{}
	}
	return c.regFile.R
}

// ConditionCodes returns the current condition codes.
func (c *Core) ConditionCodes() emu.ConditionCodes {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.regFile == nil {
		return emu.ConditionCodes{}
	}
	return c.regFile.CC
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return Stats{}
	}

	pipeStats := c.pipeline.Stats()
	stats := Stats{
		Cycles:         pipeStats.Cycles,
		Instructions:   pipeStats.Instructions,
		Stalls:         pipeStats.Stalls,
		Bubbles:        pipeStats.Bubbles,
		LoadUseHazards: pipeStats.LoadUseHazards,
		Mispredictions: pipeStats.Mispredictions,
		ReturnDrains:   pipeStats.ReturnDrains,
		Forwards:       pipeStats.Forwards,
		FaultDrains:    pipeStats.FaultDrains,
	}

	if dc, ok := c.pipeline.DataCacheStats(); ok {
		stats.DataCache = &dc
	}

	return stats
}

// Snapshot returns a copy of the pipeline registers and architected state.
func (c *Core) Snapshot() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline == nil {
		return Snapshot{}, ErrNotLoaded
	}

	return Snapshot{
		Cycle:     c.pipeline.Stats().Cycles,
		PC:        c.pipeline.PC(),
		Status:    c.pipeline.Status(),
		Halted:    c.pipeline.Halted(),
		Registers: c.regFile.R,
		CC:        c.regFile.CC,
		F:         c.pipeline.FetchReg(),
		D:         c.pipeline.DecodeReg(),
		E:         c.pipeline.ExecuteReg(),
		M:         c.pipeline.MemoryReg(),
		W:         c.pipeline.WritebackReg(),
		Memory:    c.memory.Words(),
	}, nil
}

// WriteTrace writes the cycle log as trace text to w.
func (c *Core) WriteTrace(w io.Writer) error {
	log := c.Log()
	if log == nil {
		c.mu.Lock()
		loaded := c.pipeline != nil
		c.mu.Unlock()
		if !loaded {
			return ErrNotLoaded
		}
	}

	return trace.NewWriter(w).WriteLog(log)
}
