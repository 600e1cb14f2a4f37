package emu

import (
	"math"

	"github.com/sarchlab/y86sim/insts"
)

// ALUResult holds the outcome of one ALU operation.
type ALUResult struct {
	// Value is the result wrapped into the signed 32-bit range.
	Value int32

	// Flags computed from the result before wrapping.
	ZF bool
	SF bool
	OF bool
}

// ALU implements the Y86 arithmetic and logic unit.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Compute performs aluB OP aluA without touching the condition codes.
//
// The operation is carried out on 64-bit integers so that the flags see the
// exact result. ZF, SF and OF are derived from that pre-wrap result; the
// returned value is wrapped modulo 2^32 into the int32 range. Unknown
// function codes produce 0.
func Compute(fun insts.ALUFunc, aluA, aluB int32) ALUResult {
	a := int64(aluA)
	b := int64(aluB)

	var r int64
	switch fun {
	case insts.ALUAdd:
		r = b + a
	case insts.ALUSub:
		r = b - a
	case insts.ALUAnd:
		r = b & a
	case insts.ALUXor:
		r = b ^ a
	}

	return ALUResult{
		Value: int32(r),
		ZF:    r == 0,
		SF:    r < 0,
		OF:    r > math.MaxInt32 || r < math.MinInt32,
	}
}

// Execute performs aluB OP aluA and, if setCC holds, commits the flags to
// the register file's condition codes.
func (a *ALU) Execute(fun insts.ALUFunc, aluA, aluB int32, setCC bool) int32 {
	result := Compute(fun, aluA, aluB)

	if setCC {
		a.regFile.CC = ConditionCodes{
			ZF: result.ZF,
			SF: result.SF,
			OF: result.OF,
		}
	}

	return result.Value
}
