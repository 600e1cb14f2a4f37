// Package insts provides Y86 instruction definitions and decoding.
//
// This package holds the symbolic constants shared by every other part of
// the simulator: instruction codes, function codes, register identifiers
// and the status codes carried through the pipeline. It also implements
// decoding of a memory image into structured instruction records.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(image, 0x0) // irmovl $5, %eax
//	fmt.Printf("icode: %v, rB: %v, valC: %d\n", inst.Icode, inst.RB, inst.ValC)
package insts

import "fmt"

// Icode is a Y86 instruction code (the high nibble of the first byte).
type Icode uint8

// Y86 instruction codes.
const (
	IcodeNOP    Icode = 0x0
	IcodeHALT   Icode = 0x1
	IcodeRRMOVL Icode = 0x2 // also the conditional moves (ifun 1-6)
	IcodeIRMOVL Icode = 0x3
	IcodeRMMOVL Icode = 0x4
	IcodeMRMOVL Icode = 0x5
	IcodeOPL    Icode = 0x6
	IcodeJXX    Icode = 0x7
	IcodeCALL   Icode = 0x8
	IcodeRET    Icode = 0x9
	IcodePUSHL  Icode = 0xA
	IcodePOPL   Icode = 0xB

	// IcodeIADDL and IcodeLEAVE are reserved. They have no defined
	// semantics and decode as invalid instructions.
	IcodeIADDL Icode = 0xC
	IcodeLEAVE Icode = 0xD
)

var icodeNames = map[Icode]string{
	IcodeNOP:    "nop",
	IcodeHALT:   "halt",
	IcodeRRMOVL: "rrmovl",
	IcodeIRMOVL: "irmovl",
	IcodeRMMOVL: "rmmovl",
	IcodeMRMOVL: "mrmovl",
	IcodeOPL:    "opl",
	IcodeJXX:    "jxx",
	IcodeCALL:   "call",
	IcodeRET:    "ret",
	IcodePUSHL:  "pushl",
	IcodePOPL:   "popl",
}

// String returns the mnemonic of the instruction code.
func (i Icode) String() string {
	if name, ok := icodeNames[i]; ok {
		return name
	}
	return fmt.Sprintf("icode(0x%x)", uint8(i))
}

// Valid reports whether the instruction code is implemented.
func (i Icode) Valid() bool {
	_, ok := icodeNames[i]
	return ok
}

// NeedsRegIDs reports whether the instruction carries a register specifier
// byte.
func (i Icode) NeedsRegIDs() bool {
	switch i {
	case IcodeRRMOVL, IcodeOPL, IcodePUSHL, IcodePOPL,
		IcodeIRMOVL, IcodeRMMOVL, IcodeMRMOVL:
		return true
	}
	return false
}

// NeedsValC reports whether the instruction carries a 4-byte constant word.
func (i Icode) NeedsValC() bool {
	switch i {
	case IcodeIRMOVL, IcodeRMMOVL, IcodeMRMOVL, IcodeJXX, IcodeCALL:
		return true
	}
	return false
}

// IsLoad reports whether the instruction writes a register from memory.
func (i Icode) IsLoad() bool {
	return i == IcodeMRMOVL || i == IcodePOPL
}

// FNone is the function code of instructions without a sub-function.
const FNone uint8 = 0x0

// ALUFunc represents an OPl function code.
type ALUFunc uint8

// ALU functions.
const (
	ALUAdd ALUFunc = 0x0
	ALUSub ALUFunc = 0x1
	ALUAnd ALUFunc = 0x2
	ALUXor ALUFunc = 0x3
)

// Cond represents the function code of jXX and cmovXX instructions.
type Cond uint8

// Y86 condition codes.
const (
	CondAlways Cond = 0x0 // jmp / rrmovl
	CondLE     Cond = 0x1 // (SF ^ OF) | ZF
	CondL      Cond = 0x2 // SF ^ OF
	CondE      Cond = 0x3 // ZF
	CondNE     Cond = 0x4 // !ZF
	CondGE     Cond = 0x5 // !(SF ^ OF)
	CondG      Cond = 0x6 // !(SF ^ OF) & !ZF
)

// Reg is a Y86 register identifier.
type Reg uint8

// Y86 registers. RegNone is a sentinel that never names storage.
const (
	RegEAX  Reg = 0x0
	RegECX  Reg = 0x1
	RegEDX  Reg = 0x2
	RegEBX  Reg = 0x3
	RegESP  Reg = 0x4
	RegEBP  Reg = 0x5
	RegESI  Reg = 0x6
	RegEDI  Reg = 0x7
	RegNone Reg = 0x8
)

// NumRegs is the number of architected general registers.
const NumRegs = 8

var regNames = [...]string{
	"%eax", "%ecx", "%edx", "%ebx", "%esp", "%ebp", "%esi", "%edi", "none",
}

// String returns the assembler name of the register.
func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("reg(0x%x)", uint8(r))
}

// IsNone reports whether the register is the RegNone sentinel.
func (r Reg) IsNone() bool {
	return r == RegNone
}

// Status is the status code attached to every pipeline register.
type Status uint8

// Pipeline status codes.
const (
	StatusBubble Status = iota
	StatusOK
	StatusAddressError
	StatusInvalidInstruction
	StatusHalt
)

// String returns the short name of the status code.
func (s Status) String() string {
	switch s {
	case StatusBubble:
		return "BUB"
	case StatusOK:
		return "AOK"
	case StatusAddressError:
		return "ADR"
	case StatusInvalidInstruction:
		return "INS"
	case StatusHalt:
		return "HLT"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// IsFault reports whether the status stops the processor once it retires.
// Halt counts as a fault here even though it is not an error.
func (s Status) IsFault() bool {
	return s == StatusAddressError || s == StatusInvalidInstruction || s == StatusHalt
}
