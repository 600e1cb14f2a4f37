package pipeline

import (
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// CycleRecord is a snapshot of the pipeline taken at the end of a cycle.
type CycleRecord struct {
	// Cycle is the zero-based index of the cycle.
	Cycle uint64

	// Pipeline registers as latched in this cycle.
	F FetchRegister
	D DecodeRegister
	E ExecuteRegister
	M MemoryRegister
	W WritebackRegister

	// FetchPC is the address fetched in this cycle.
	FetchPC int32

	// Committed architectural state after writeback.
	Registers [insts.NumRegs]int32
	CC        emu.ConditionCodes

	// Status is the global status after this cycle.
	Status insts.Status

	// Controls are the hazard decisions applied in this cycle.
	Controls Controls
}

// record appends a snapshot of the current cycle to the log.
func (p *Pipeline) record() {
	p.log = append(p.log, CycleRecord{
		Cycle:     p.stats.Cycles - 1,
		F:         p.f,
		D:         p.d,
		E:         p.e,
		M:         p.m,
		W:         p.w,
		FetchPC:   p.fetchOut.PC,
		Registers: p.regFile.R,
		CC:        p.regFile.CC,
		Status:    p.status,
		Controls:  p.controls,
	})
}

// Log returns a copy of the per-cycle records in cycle order.
func (p *Pipeline) Log() []CycleRecord {
	out := make([]CycleRecord, len(p.log))
	copy(out, p.log)
	return out
}

// LastRecord returns the most recent cycle record, if any cycle has run.
func (p *Pipeline) LastRecord() (CycleRecord, bool) {
	if len(p.log) == 0 {
		return CycleRecord{}, false
	}
	return p.log[len(p.log)-1], true
}
