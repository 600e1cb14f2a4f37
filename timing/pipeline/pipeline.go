package pipeline

import (
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/timing/cache"
)

// DefaultMaxCycles bounds a run when no limit is configured.
const DefaultMaxCycles = 10000

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of non-bubble instructions retired.
	Instructions uint64
	// Stalls is the number of cycles in which fetch was stalled.
	Stalls uint64
	// Bubbles is the number of bubbles injected into D, E and M.
	Bubbles uint64
	// LoadUseHazards is the number of load/use stall cycles.
	LoadUseHazards uint64
	// ReturnDrains is the number of cycles spent waiting for a ret.
	ReturnDrains uint64
	// Mispredictions is the number of mispredicted conditional jumps.
	Mispredictions uint64
	// Forwards is the number of decode operands supplied by forwarding.
	Forwards uint64
	// FaultDrains is the number of cycles spent draining a fault.
	FaultDrains uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithMaxCycles bounds the number of cycles Run may execute.
// A value of 0 means no limit.
func WithMaxCycles(max uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = max
	}
}

// WithEntryPC sets the address of the first instruction fetched.
func WithEntryPC(pc int32) PipelineOption {
	return func(p *Pipeline) {
		p.entryPC = pc
	}
}

// WithDataCache attaches a data-cache profiler to the memory stage.
func WithDataCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dataCache = cache.New(config)
	}
}

// Pipeline implements the 5-stage Y86 pipeline.
// Stages: Fetch (F) -> Decode (D) -> Execute (E) -> Memory (M) -> Writeback (W)
type Pipeline struct {
	// Pipeline registers
	f FetchRegister
	d DecodeRegister
	e ExecuteRegister
	m MemoryRegister
	w WritebackRegister

	// Stage outputs of the most recent cycle
	fetchOut  FetchResult
	decodeOut DecodeResult
	execOut   ExecuteResult
	memOut    MemoryResult

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit
	controls   Controls

	// Optional data-cache profiler
	dataCache *cache.Cache

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	entryPC   int32
	maxCycles uint64

	// Statistics
	stats Statistics

	// Cycle log
	log []CycleRecord

	// Execution state
	status insts.Status
	halted bool
}

// NewPipeline creates a new 5-stage pipeline executing the program held in
// memory's image.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:   regFile,
		memory:    memory,
		maxCycles: DefaultMaxCycles,
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	p.hazardUnit = NewHazardUnit()
	p.fetchStage = NewFetchStage(memory.Image())
	p.decodeStage = NewDecodeStage(regFile, p.hazardUnit)
	p.executeStage = NewExecuteStage(regFile)
	p.memoryStage = NewMemoryStage(memory, p.dataCache)
	p.writebackStage = NewWritebackStage(regFile)

	p.resetState()

	return p
}

// resetState puts every pipeline register and stage output into its
// power-on state. It is shared by construction and Reset.
func (p *Pipeline) resetState() {
	p.f.Clear()
	p.d.Clear()
	p.e.Clear()
	p.m.Clear()
	p.w.Clear()

	p.fetchOut = FetchResult{
		PC: p.entryPC,
		Inst: insts.Instruction{
			Icode:  insts.IcodeNOP,
			RA:     insts.RegNone,
			RB:     insts.RegNone,
			PredPC: p.entryPC,
			Status: insts.StatusBubble,
		},
	}
	p.decodeOut = emptyDecodeResult()
	p.execOut = emptyExecuteResult()
	p.memOut = emptyMemoryResult()

	p.controls = Controls{}
	p.stats = Statistics{}
	p.log = nil
	p.status = insts.StatusOK
	p.halted = false
}

// Reset clears all architected state: registers, condition codes, data
// memory, pipeline registers, statistics and the cycle log.
func (p *Pipeline) Reset() {
	p.regFile.Reset()
	p.memory.Reset()
	if p.dataCache != nil {
		p.dataCache.Reset()
	}
	p.resetState()
}

// FetchReg returns a copy of the F pipeline register.
func (p *Pipeline) FetchReg() FetchRegister {
	return p.f
}

// DecodeReg returns a copy of the D pipeline register.
func (p *Pipeline) DecodeReg() DecodeRegister {
	return p.d
}

// ExecuteReg returns a copy of the E pipeline register.
func (p *Pipeline) ExecuteReg() ExecuteRegister {
	return p.e
}

// MemoryReg returns a copy of the M pipeline register.
func (p *Pipeline) MemoryReg() MemoryRegister {
	return p.m
}

// WritebackReg returns a copy of the W pipeline register.
func (p *Pipeline) WritebackReg() WritebackRegister {
	return p.w
}

// PC returns the address fetched in the most recent cycle.
func (p *Pipeline) PC() int32 {
	return p.fetchOut.PC
}

// Controls returns the hazard decisions applied in the most recent cycle.
func (p *Pipeline) Controls() Controls {
	return p.controls
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// DataCacheStats returns the data-cache profiler statistics, if a profiler
// is attached.
func (p *Pipeline) DataCacheStats() (cache.Statistics, bool) {
	if p.dataCache == nil {
		return cache.Statistics{}, false
	}
	return p.dataCache.Stats(), true
}

// Status returns the global status: the last non-bubble status retired by
// the writeback stage, or OK if only bubbles have retired.
func (p *Pipeline) Status() insts.Status {
	return p.status
}

// Halted returns true once a Halt, AddressError or InvalidInstruction
// status has retired.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// MaxCycles returns the cycle limit (0 means unlimited).
func (p *Pipeline) MaxCycles() uint64 {
	return p.maxCycles
}

// SetMaxCycles changes the cycle limit.
func (p *Pipeline) SetMaxCycles(max uint64) {
	p.maxCycles = max
}

// LimitReached returns true if the cycle limit has been reached.
func (p *Pipeline) LimitReached() bool {
	return p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles
}

// Done returns true if no further cycle will be executed.
func (p *Pipeline) Done() bool {
	return p.halted || p.LimitReached()
}

// Run executes cycles until the pipeline halts or the cycle limit is
// reached. Returns the global status.
func (p *Pipeline) Run() insts.Status {
	for !p.Done() {
		p.Tick()
	}
	return p.status
}

// RunCycles executes the pipeline for at most the specified number of
// cycles. Returns true if still running, false if done.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.Done(); i++ {
		p.Tick()
	}
	return !p.Done()
}

// Tick executes one pipeline cycle.
//
// All latch decisions are made first, from the pre-cycle state. Then each
// stage latches its register and computes its outputs, from writeback back
// to fetch, so that every stage sees this cycle's results of the stages
// ahead of it (the forwarding sources) and last cycle's results of the
// stage behind it.
func (p *Pipeline) Tick() {
	if p.Done() {
		return
	}

	ctl := p.hazardUnit.Evaluate(HazardState{
		D:       &p.d,
		E:       &p.e,
		M:       &p.m,
		W:       &p.w,
		Decode:  p.decodeOut,
		Execute: p.execOut,
		Memory:  p.memOut,
	})
	p.controls = ctl

	// Stage 5: Writeback
	p.latchWriteback(ctl.W)
	p.writebackStage.Writeback(&p.w)
	p.retire()

	// Stage 4: Memory
	p.latchMemory(ctl.M)
	p.memOut = p.memoryStage.Access(&p.m)

	// Stage 3: Execute
	p.latchExecute(ctl.E)
	allowCC := !p.memOut.Stat.IsFault() && !p.w.Stat.IsFault()
	p.execOut = p.executeStage.Execute(&p.e, allowCC)

	// Stage 2: Decode
	p.latchDecode(ctl.D)
	p.decodeOut = p.decodeStage.Decode(&p.d, ForwardingSources{
		Execute: p.execOut,
		Memory:  p.memOut,
		M:       &p.m,
		W:       &p.w,
	})

	// Stage 1: Fetch
	p.latchFetch(ctl.F)
	p.fetchOut = p.fetchStage.Fetch(&p.f, &p.m, &p.w)

	p.updateStats(ctl)
	p.record()
}

func (p *Pipeline) latchWriteback(d Decision) {
	switch d {
	case Stall:
		return
	case Bubble:
		p.w.Clear()
		return
	}

	p.w = WritebackRegister{
		Stat:  p.memOut.Stat,
		Icode: p.m.Icode,
		Ifun:  p.m.Ifun,
		ValE:  p.m.ValE,
		ValM:  p.memOut.ValM,
		DstE:  p.m.DstE,
		DstM:  p.m.DstM,
	}
}

func (p *Pipeline) latchMemory(d Decision) {
	switch d {
	case Stall:
		return
	case Bubble:
		p.m.Clear()
		return
	}

	p.m = MemoryRegister{
		Stat:  p.e.Stat,
		Icode: p.e.Icode,
		Ifun:  p.e.Ifun,
		Cnd:   p.execOut.Cnd,
		ValE:  p.execOut.ValE,
		ValA:  p.e.ValA,
		DstE:  p.execOut.DstE,
		DstM:  p.e.DstM,
	}
}

func (p *Pipeline) latchExecute(d Decision) {
	switch d {
	case Stall:
		return
	case Bubble:
		p.e.Clear()
		return
	}

	p.e = ExecuteRegister{
		Stat:  p.d.Stat,
		Icode: p.d.Icode,
		Ifun:  p.d.Ifun,
		ValC:  p.d.ValC,
		ValA:  p.decodeOut.ValA,
		ValB:  p.decodeOut.ValB,
		DstE:  p.decodeOut.DstE,
		DstM:  p.decodeOut.DstM,
		SrcA:  p.decodeOut.SrcA,
		SrcB:  p.decodeOut.SrcB,
	}
}

func (p *Pipeline) latchDecode(d Decision) {
	switch d {
	case Stall:
		return
	case Bubble:
		p.d.Clear()
		return
	}

	inst := p.fetchOut.Inst
	p.d = DecodeRegister{
		Stat:  inst.Status,
		Icode: inst.Icode,
		Ifun:  inst.Ifun,
		RA:    inst.RA,
		RB:    inst.RB,
		ValC:  inst.ValC,
		ValP:  inst.ValP,
	}
}

func (p *Pipeline) latchFetch(d Decision) {
	switch d {
	case Stall:
		return
	case Bubble:
		p.f.Clear()
		return
	}

	p.f = FetchRegister{
		Stat:   insts.StatusOK,
		PredPC: p.fetchOut.Inst.PredPC,
	}
}

// retire promotes the status of the instruction in W to the global status
// and stops the pipeline on Halt, AddressError or InvalidInstruction.
func (p *Pipeline) retire() {
	if p.w.Stat == insts.StatusBubble {
		return
	}

	p.stats.Instructions++
	p.status = p.w.Stat

	if p.w.Stat.IsFault() {
		p.halted = true
	}
}

func (p *Pipeline) updateStats(ctl Controls) {
	p.stats.Cycles++

	if ctl.F == Stall {
		p.stats.Stalls++
	}
	for _, d := range []Decision{ctl.D, ctl.E, ctl.M} {
		if d == Bubble {
			p.stats.Bubbles++
		}
	}
	if ctl.LoadUse {
		p.stats.LoadUseHazards++
	}
	if ctl.ReturnDrain {
		p.stats.ReturnDrains++
	}
	if ctl.Mispredicted {
		p.stats.Mispredictions++
	}
	if ctl.FaultDrain {
		p.stats.FaultDrains++
	}

	for _, src := range []ForwardSource{p.decodeOut.ForwardA, p.decodeOut.ForwardB} {
		if src != ForwardNone && src != ForwardValP {
			p.stats.Forwards++
		}
	}
}
