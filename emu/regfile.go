// Package emu provides the Y86 architected state and functional emulation.
package emu

import "github.com/sarchlab/y86sim/insts"

// RegFile represents the Y86 register file.
// It contains the eight general-purpose registers and the condition codes.
type RegFile struct {
	// R holds general-purpose registers %eax-%edi, indexed by insts.Reg.
	R [insts.NumRegs]int32

	// CC holds the condition codes.
	CC ConditionCodes
}

// ConditionCodes represents the Y86 condition flags.
type ConditionCodes struct {
	// ZF is the zero flag.
	ZF bool
	// SF is the sign flag.
	SF bool
	// OF is the overflow flag.
	OF bool
}

// ReadReg reads a register value. RegNone and any larger id read as 0.
func (r *RegFile) ReadReg(reg insts.Reg) int32 {
	if reg >= insts.NumRegs {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to RegNone are ignored.
func (r *RegFile) WriteReg(reg insts.Reg, value int32) {
	if reg >= insts.NumRegs {
		return
	}
	r.R[reg] = value
}

// Reset clears every register and condition code.
func (r *RegFile) Reset() {
	*r = RegFile{}
}

// Cond evaluates a jXX/cmovXX condition against the condition codes.
func (cc ConditionCodes) Cond(cond insts.Cond) bool {
	lt := cc.SF != cc.OF

	switch cond {
	case insts.CondAlways:
		return true
	case insts.CondLE:
		return lt || cc.ZF
	case insts.CondL:
		return lt
	case insts.CondE:
		return cc.ZF
	case insts.CondNE:
		return !cc.ZF
	case insts.CondGE:
		return !lt
	case insts.CondG:
		return !lt && !cc.ZF
	default:
		return false
	}
}
