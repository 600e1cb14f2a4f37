package pipeline

import (
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/timing/cache"
)

// FetchStage handles instruction fetch and PC selection.
type FetchStage struct {
	image   *emu.Image
	decoder *insts.Decoder
}

// NewFetchStage creates a new fetch stage reading from the program image.
func NewFetchStage(image *emu.Image) *FetchStage {
	return &FetchStage{
		image:   image,
		decoder: insts.NewDecoder(),
	}
}

// FetchResult holds the result of the fetch stage.
type FetchResult struct {
	// PC is the address the instruction was fetched from.
	PC int32

	// Inst is the decoded instruction, including its fetch status.
	Inst insts.Instruction
}

// SelectPC chooses the fetch address: the fallthrough of a mispredicted
// jump in M, then the return address of a ret in W, then the prediction.
func (s *FetchStage) SelectPC(f *FetchRegister, m *MemoryRegister, w *WritebackRegister) int32 {
	switch {
	case m.Icode == insts.IcodeJXX && !m.Cnd:
		return m.ValA
	case w.Icode == insts.IcodeRET:
		return w.ValM
	default:
		return f.PredPC
	}
}

// Fetch reads and decodes the next instruction.
func (s *FetchStage) Fetch(f *FetchRegister, m *MemoryRegister, w *WritebackRegister) FetchResult {
	pc := s.SelectPC(f, m, w)
	return FetchResult{
		PC:   pc,
		Inst: s.decoder.Decode(s.image, pc),
	}
}

// DecodeStage handles operand selection and register read.
type DecodeStage struct {
	regFile    *emu.RegFile
	hazardUnit *HazardUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, hazardUnit *HazardUnit) *DecodeStage {
	return &DecodeStage{
		regFile:    regFile,
		hazardUnit: hazardUnit,
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	// Source and destination registers.
	SrcA insts.Reg
	SrcB insts.Reg
	DstE insts.Reg
	DstM insts.Reg

	// Operand values after forwarding.
	ValA int32
	ValB int32

	// Where each operand came from.
	ForwardA ForwardSource
	ForwardB ForwardSource
}

// emptyDecodeResult is the decode output of a bubble.
func emptyDecodeResult() DecodeResult {
	return DecodeResult{
		SrcA: insts.RegNone,
		SrcB: insts.RegNone,
		DstE: insts.RegNone,
		DstM: insts.RegNone,
	}
}

// Operands returns the register roles of an instruction.
func Operands(icode insts.Icode, rA, rB insts.Reg) (srcA, srcB, dstE, dstM insts.Reg) {
	srcA, srcB, dstE, dstM = insts.RegNone, insts.RegNone, insts.RegNone, insts.RegNone

	switch icode {
	case insts.IcodeRRMOVL, insts.IcodeRMMOVL, insts.IcodeOPL, insts.IcodePUSHL:
		srcA = rA
	case insts.IcodePOPL, insts.IcodeRET:
		srcA = insts.RegESP
	}

	switch icode {
	case insts.IcodeOPL, insts.IcodeRMMOVL, insts.IcodeMRMOVL:
		srcB = rB
	case insts.IcodePUSHL, insts.IcodePOPL, insts.IcodeCALL, insts.IcodeRET:
		srcB = insts.RegESP
	}

	switch icode {
	case insts.IcodeRRMOVL, insts.IcodeIRMOVL, insts.IcodeOPL:
		dstE = rB
	case insts.IcodePUSHL, insts.IcodePOPL, insts.IcodeCALL, insts.IcodeRET:
		dstE = insts.RegESP
	}

	switch icode {
	case insts.IcodeMRMOVL, insts.IcodePOPL:
		dstM = rA
	}

	return srcA, srcB, dstE, dstM
}

// Decode selects operands for the instruction in D and reads them,
// forwarding uncommitted results where needed.
func (s *DecodeStage) Decode(d *DecodeRegister, fwd ForwardingSources) DecodeResult {
	result := emptyDecodeResult()
	result.SrcA, result.SrcB, result.DstE, result.DstM = Operands(d.Icode, d.RA, d.RB)

	if d.Icode == insts.IcodeCALL || d.Icode == insts.IcodeJXX {
		result.ValA = d.ValP
		result.ForwardA = ForwardValP
	} else {
		result.ForwardA = s.hazardUnit.DetectForwarding(result.SrcA, fwd)
		result.ValA = s.hazardUnit.GetForwardedValue(
			result.ForwardA, s.regFile.ReadReg(result.SrcA), fwd)
	}

	result.ForwardB = s.hazardUnit.DetectForwarding(result.SrcB, fwd)
	result.ValB = s.hazardUnit.GetForwardedValue(
		result.ForwardB, s.regFile.ReadReg(result.SrcB), fwd)

	return result
}

// ExecuteStage handles ALU operations, condition evaluation and address
// calculation.
type ExecuteStage struct {
	regFile *emu.RegFile
	alu     *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(regFile *emu.RegFile) *ExecuteStage {
	return &ExecuteStage{
		regFile: regFile,
		alu:     emu.NewALU(regFile),
	}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ValE int32

	// DstE is RegNone when a conditional move is not taken.
	DstE insts.Reg

	// Cnd is the condition outcome for jXX and cmovXX.
	Cnd bool

	// SetCC reports whether the condition codes were updated.
	SetCC bool
}

// emptyExecuteResult is the execute output of a bubble.
func emptyExecuteResult() ExecuteResult {
	return ExecuteResult{DstE: insts.RegNone}
}

// ALUInputs returns the ALU operands and function for the instruction in E.
func ALUInputs(e *ExecuteRegister) (aluA, aluB int32, fun insts.ALUFunc) {
	switch e.Icode {
	case insts.IcodeRRMOVL, insts.IcodeOPL:
		aluA = e.ValA
	case insts.IcodeIRMOVL, insts.IcodeRMMOVL, insts.IcodeMRMOVL:
		aluA = e.ValC
	case insts.IcodeCALL, insts.IcodePUSHL:
		aluA = -4
	case insts.IcodeRET, insts.IcodePOPL:
		aluA = 4
	}

	switch e.Icode {
	case insts.IcodeRMMOVL, insts.IcodeMRMOVL, insts.IcodeOPL, insts.IcodeCALL,
		insts.IcodePUSHL, insts.IcodeRET, insts.IcodePOPL:
		aluB = e.ValB
	}

	fun = insts.ALUAdd
	if e.Icode == insts.IcodeOPL {
		fun = insts.ALUFunc(e.Ifun)
	}

	return aluA, aluB, fun
}

// Execute performs the ALU operation of the instruction in E. The
// condition codes are only written when allowCC holds, which the pipeline
// clears while a fault is draining.
func (s *ExecuteStage) Execute(e *ExecuteRegister, allowCC bool) ExecuteResult {
	result := emptyExecuteResult()

	aluA, aluB, fun := ALUInputs(e)
	result.SetCC = e.Icode == insts.IcodeOPL && e.Stat == insts.StatusOK && allowCC
	result.ValE = s.alu.Execute(fun, aluA, aluB, result.SetCC)

	if e.Icode == insts.IcodeJXX || e.Icode == insts.IcodeRRMOVL {
		result.Cnd = s.regFile.CC.Cond(insts.Cond(e.Ifun))
	}

	result.DstE = e.DstE
	if e.Icode == insts.IcodeRRMOVL && !result.Cnd {
		result.DstE = insts.RegNone
	}

	return result
}

// MemoryStage handles data memory reads and writes.
type MemoryStage struct {
	memory    *emu.Memory
	dataCache *cache.Cache
}

// NewMemoryStage creates a new memory stage. dataCache may be nil.
func NewMemoryStage(memory *emu.Memory, dataCache *cache.Cache) *MemoryStage {
	return &MemoryStage{
		memory:    memory,
		dataCache: dataCache,
	}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	// ValM is the word read from memory.
	ValM int32

	// Stat is AddressError on a faulting access, M_stat otherwise.
	Stat insts.Status

	// Addr is the effective address and Read/Write tell how it was used.
	Addr  int32
	Read  bool
	Write bool
}

// emptyMemoryResult is the memory output of a bubble.
func emptyMemoryResult() MemoryResult {
	return MemoryResult{Stat: insts.StatusBubble}
}

// MemoryAccess returns the effective address and access kind for the
// instruction in M.
func MemoryAccess(m *MemoryRegister) (addr int32, read, write bool) {
	switch m.Icode {
	case insts.IcodeRMMOVL, insts.IcodePUSHL, insts.IcodeCALL, insts.IcodeMRMOVL:
		addr = m.ValE
	case insts.IcodePOPL, insts.IcodeRET:
		addr = m.ValA
	}

	read = m.Icode == insts.IcodeMRMOVL || m.Icode == insts.IcodePOPL || m.Icode == insts.IcodeRET
	write = m.Icode == insts.IcodeRMMOVL || m.Icode == insts.IcodePUSHL || m.Icode == insts.IcodeCALL

	return addr, read, write
}

// Access performs the memory read or write of the instruction in M.
// Instructions that already carry a fault do not touch memory.
func (s *MemoryStage) Access(m *MemoryRegister) MemoryResult {
	result := MemoryResult{Stat: m.Stat}
	result.Addr, result.Read, result.Write = MemoryAccess(m)

	if m.Stat != insts.StatusOK {
		return result
	}

	dmemError := false

	if result.Read {
		value, ok := s.memory.Read(result.Addr)
		if ok {
			result.ValM = value
		} else {
			dmemError = true
		}
	}

	if result.Write {
		if !s.memory.Write(result.Addr, m.ValA) {
			dmemError = true
		}
	}

	if dmemError {
		result.Stat = insts.StatusAddressError
	} else if s.dataCache != nil && (result.Read || result.Write) {
		s.dataCache.Access(uint64(result.Addr), result.Write)
	}

	return result
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback writes the results of the instruction in W to the register
// file. Only instructions with status OK commit. When both destinations
// name the same register, the memory result wins.
func (s *WritebackStage) Writeback(w *WritebackRegister) {
	if w.Stat != insts.StatusOK {
		return
	}

	s.regFile.WriteReg(w.DstE, w.ValE)
	s.regFile.WriteReg(w.DstM, w.ValM)
}
