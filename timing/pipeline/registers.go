// Package pipeline provides the 5-stage Y86 pipeline implementation.
package pipeline

import "github.com/sarchlab/y86sim/insts"

// FetchRegister (F) holds the predicted PC for the next fetch.
type FetchRegister struct {
	Stat   insts.Status
	PredPC int32
}

// Clear resets the F register to a bubble.
func (r *FetchRegister) Clear() {
	r.Stat = insts.StatusBubble
	r.PredPC = 0
}

// DecodeRegister (D) holds state between Fetch and Decode stages.
type DecodeRegister struct {
	Stat  insts.Status
	Icode insts.Icode
	Ifun  uint8
	RA    insts.Reg
	RB    insts.Reg
	ValC  int32
	ValP  int32
}

// Clear resets the D register to a bubble.
func (r *DecodeRegister) Clear() {
	r.Stat = insts.StatusBubble
	r.Icode = insts.IcodeNOP
	r.Ifun = insts.FNone
	r.RA = insts.RegNone
	r.RB = insts.RegNone
	r.ValC = 0
	r.ValP = 0
}

// ExecuteRegister (E) holds state between Decode and Execute stages.
type ExecuteRegister struct {
	Stat  insts.Status
	Icode insts.Icode
	Ifun  uint8
	ValC  int32

	// Operand values after forwarding.
	ValA int32
	ValB int32

	// Destination and source registers.
	DstE insts.Reg
	DstM insts.Reg
	SrcA insts.Reg
	SrcB insts.Reg
}

// Clear resets the E register to a bubble.
func (r *ExecuteRegister) Clear() {
	r.Stat = insts.StatusBubble
	r.Icode = insts.IcodeNOP
	r.Ifun = insts.FNone
	r.ValC = 0
	r.ValA = 0
	r.ValB = 0
	r.DstE = insts.RegNone
	r.DstM = insts.RegNone
	r.SrcA = insts.RegNone
	r.SrcB = insts.RegNone
}

// MemoryRegister (M) holds state between Execute and Memory stages.
type MemoryRegister struct {
	Stat  insts.Status
	Icode insts.Icode
	Ifun  uint8

	// Cnd is the condition outcome of a jXX or cmovXX (traced as M_Bch).
	Cnd bool

	// ValE is the ALU result (address for memory instructions).
	ValE int32

	// ValA is the value to store, the popped stack pointer, or the
	// fallthrough address of a jump.
	ValA int32

	DstE insts.Reg
	DstM insts.Reg
}

// Clear resets the M register to a bubble.
func (r *MemoryRegister) Clear() {
	r.Stat = insts.StatusBubble
	r.Icode = insts.IcodeNOP
	r.Ifun = insts.FNone
	r.Cnd = false
	r.ValE = 0
	r.ValA = 0
	r.DstE = insts.RegNone
	r.DstM = insts.RegNone
}

// WritebackRegister (W) holds state between Memory and Writeback stages.
type WritebackRegister struct {
	Stat  insts.Status
	Icode insts.Icode
	Ifun  uint8

	// ALU result and data read from memory.
	ValE int32
	ValM int32

	DstE insts.Reg
	DstM insts.Reg
}

// Clear resets the W register to a bubble.
func (r *WritebackRegister) Clear() {
	r.Stat = insts.StatusBubble
	r.Icode = insts.IcodeNOP
	r.Ifun = insts.FNone
	r.ValE = 0
	r.ValM = 0
	r.DstE = insts.RegNone
	r.DstM = insts.RegNone
}
