package pipeline

import "github.com/sarchlab/y86sim/insts"

// Decision is the per-cycle control applied to one pipeline register.
type Decision uint8

const (
	// Latch loads the register from the previous stage's outputs.
	Latch Decision = iota
	// Stall keeps the register contents unchanged.
	Stall
	// Bubble replaces the register contents with a bubble.
	Bubble
)

// String returns the name of the decision.
func (d Decision) String() string {
	switch d {
	case Stall:
		return "stall"
	case Bubble:
		return "bubble"
	default:
		return "latch"
	}
}

// Controls holds the decisions for all five pipeline registers.
type Controls struct {
	F Decision
	D Decision
	E Decision
	M Decision
	W Decision

	// Conditions that produced the decisions.
	LoadUse      bool
	ReturnDrain  bool
	Mispredicted bool
	FaultDrain   bool
}

// HazardState is the pre-cycle view the hazard unit decides from: the
// pipeline registers before any latch, and the stage outputs computed in
// the previous cycle.
type HazardState struct {
	D *DecodeRegister
	E *ExecuteRegister
	M *MemoryRegister
	W *WritebackRegister

	Decode  DecodeResult
	Execute ExecuteResult
	Memory  MemoryResult
}

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromExecute forwards the ALU result computed this cycle (e_valE).
	ForwardFromExecute
	// ForwardFromMemoryRead forwards the word read this cycle (m_valM).
	ForwardFromMemoryRead
	// ForwardFromMemoryALU forwards the latched ALU result in M (M_valE).
	ForwardFromMemoryALU
	// ForwardFromWritebackRead forwards the latched memory word in W (W_valM).
	ForwardFromWritebackRead
	// ForwardFromWritebackALU forwards the latched ALU result in W (W_valE).
	ForwardFromWritebackALU
	// ForwardValP means the operand is the instruction's own valP.
	ForwardValP
)

// ForwardingSources are the uncommitted results visible to the decode
// stage, in priority order.
type ForwardingSources struct {
	Execute ExecuteResult
	Memory  MemoryResult
	M       *MemoryRegister
	W       *WritebackRegister
}

// HazardUnit detects data and control hazards, decides stalls and bubbles
// and resolves operand forwarding.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// Evaluate decides Stall, Bubble or Latch for every pipeline register.
// It must be called before any register of the cycle is overwritten.
//
// Stalls take precedence over bubbles:
//   - Load/use: F and D stall, E gets a bubble.
//   - Return: while ret is in D, E or M, F stalls and D gets a bubble.
//   - Misprediction: a not-taken jXX in E bubbles D and E.
//   - Fault drain: a fault in M (this cycle's m_stat) or W bubbles M and
//     every upstream register that is not stalled; a fault in W stalls W.
func (h *HazardUnit) Evaluate(s HazardState) Controls {
	c := Controls{}

	c.LoadUse = h.DetectLoadUseHazard(s.E, s.Decode.SrcA, s.Decode.SrcB)
	c.ReturnDrain = s.D.Icode == insts.IcodeRET ||
		s.E.Icode == insts.IcodeRET ||
		s.M.Icode == insts.IcodeRET
	c.Mispredicted = s.E.Icode == insts.IcodeJXX && !s.Execute.Cnd
	c.FaultDrain = s.Memory.Stat.IsFault() || s.W.Stat.IsFault()

	if c.LoadUse || c.ReturnDrain {
		c.F = Stall
	}

	switch {
	case c.LoadUse:
		c.D = Stall
	case c.Mispredicted || c.ReturnDrain || c.FaultDrain:
		c.D = Bubble
	}

	if c.Mispredicted || c.LoadUse || c.FaultDrain {
		c.E = Bubble
	}

	if c.FaultDrain {
		c.M = Bubble
	}

	if s.W.Stat.IsFault() {
		c.W = Stall
	}

	return c
}

// DetectLoadUseHazard detects a load in E whose destination is needed by
// the instruction in D. The loaded value isn't available until the memory
// stage, too late for decode, so the pipeline must stall one cycle.
func (h *HazardUnit) DetectLoadUseHazard(e *ExecuteRegister, srcA, srcB insts.Reg) bool {
	if !e.Icode.IsLoad() || e.DstM == insts.RegNone {
		return false
	}
	return e.DstM == srcA || e.DstM == srcB
}

// DetectForwarding determines where the value of src comes from.
// Priority: e_valE, m_valM, M_valE, W_valM, W_valE, register file.
func (h *HazardUnit) DetectForwarding(src insts.Reg, fwd ForwardingSources) ForwardSource {
	if src == insts.RegNone {
		return ForwardNone
	}

	switch src {
	case fwd.Execute.DstE:
		return ForwardFromExecute
	case fwd.M.DstM:
		return ForwardFromMemoryRead
	case fwd.M.DstE:
		return ForwardFromMemoryALU
	case fwd.W.DstM:
		return ForwardFromWritebackRead
	case fwd.W.DstE:
		return ForwardFromWritebackALU
	}

	return ForwardNone
}

// GetForwardedValue returns the value to use based on forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue int32,
	fwd ForwardingSources,
) int32 {
	switch forward {
	case ForwardFromExecute:
		return fwd.Execute.ValE
	case ForwardFromMemoryRead:
		return fwd.Memory.ValM
	case ForwardFromMemoryALU:
		return fwd.M.ValE
	case ForwardFromWritebackRead:
		return fwd.W.ValM
	case ForwardFromWritebackALU:
		return fwd.W.ValE
	default:
		return originalValue
	}
}
