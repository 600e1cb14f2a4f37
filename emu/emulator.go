package emu

import (
	"fmt"

	"github.com/sarchlab/y86sim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Status is the status of the executed instruction. Anything other
	// than StatusOK stops the emulator.
	Status insts.Status

	// Err is set if the emulator refused to step.
	Err error
}

// Emulator executes Y86 instructions functionally, one instruction per
// step, with no pipelining. It shares the decoder, ALU and memory model
// with the pipeline and serves as its architectural reference.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	alu     *ALU

	pc     int32
	status insts.Status

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithEntryPC sets the address of the first instruction.
func WithEntryPC(pc int32) EmulatorOption {
	return func(e *Emulator) {
		e.pc = pc
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new Y86 emulator running the given program image.
func NewEmulator(image *Image, opts ...EmulatorOption) *Emulator {
	regFile := &RegFile{}

	e := &Emulator{
		regFile: regFile,
		memory:  NewMemory(image),
		decoder: insts.NewDecoder(),
		alu:     NewALU(regFile),
		status:  insts.StatusOK,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's data memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() int32 {
	return e.pc
}

// Status returns the processor status.
func (e *Emulator) Status() insts.Status {
	return e.status
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.status != insts.StatusOK {
		return StepResult{Status: e.status}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Status: e.status,
			Err:    fmt.Errorf("max instructions reached"),
		}
	}

	inst := e.decoder.Decode(e.memory.Image(), e.pc)
	e.instructionCount++

	if inst.Status != insts.StatusOK {
		e.status = inst.Status
		return StepResult{Status: e.status}
	}

	e.status = e.execute(&inst)
	return StepResult{Status: e.status}
}

// Run executes instructions until the processor stops or the instruction
// limit is reached. Returns the final status.
func (e *Emulator) Run() insts.Status {
	for {
		result := e.Step()
		if result.Err != nil || result.Status != insts.StatusOK {
			return result.Status
		}
	}
}

// execute runs a decoded instruction and returns its status. A memory fault
// leaves registers and PC untouched.
func (e *Emulator) execute(inst *insts.Instruction) insts.Status {
	esp := e.regFile.ReadReg(insts.RegESP)
	valA := e.regFile.ReadReg(inst.RA)
	valB := e.regFile.ReadReg(inst.RB)
	nextPC := inst.ValP

	switch inst.Icode {
	case insts.IcodeNOP:

	case insts.IcodeRRMOVL:
		if e.regFile.CC.Cond(insts.Cond(inst.Ifun)) {
			e.regFile.WriteReg(inst.RB, valA)
		}

	case insts.IcodeIRMOVL:
		e.regFile.WriteReg(inst.RB, inst.ValC)

	case insts.IcodeRMMOVL:
		addr := e.alu.Execute(insts.ALUAdd, inst.ValC, valB, false)
		if !e.memory.Write(addr, valA) {
			return insts.StatusAddressError
		}

	case insts.IcodeMRMOVL:
		addr := e.alu.Execute(insts.ALUAdd, inst.ValC, valB, false)
		value, ok := e.memory.Read(addr)
		if !ok {
			return insts.StatusAddressError
		}
		e.regFile.WriteReg(inst.RA, value)

	case insts.IcodeOPL:
		result := e.alu.Execute(insts.ALUFunc(inst.Ifun), valA, valB, true)
		e.regFile.WriteReg(inst.RB, result)

	case insts.IcodeJXX:
		if e.regFile.CC.Cond(insts.Cond(inst.Ifun)) {
			nextPC = inst.ValC
		}

	case insts.IcodeCALL:
		sp := esp - 4
		if !e.memory.Write(sp, inst.ValP) {
			return insts.StatusAddressError
		}
		e.regFile.WriteReg(insts.RegESP, sp)
		nextPC = inst.ValC

	case insts.IcodeRET:
		target, ok := e.memory.Read(esp)
		if !ok {
			return insts.StatusAddressError
		}
		e.regFile.WriteReg(insts.RegESP, esp+4)
		nextPC = target

	case insts.IcodePUSHL:
		sp := esp - 4
		if !e.memory.Write(sp, valA) {
			return insts.StatusAddressError
		}
		e.regFile.WriteReg(insts.RegESP, sp)

	case insts.IcodePOPL:
		value, ok := e.memory.Read(esp)
		if !ok {
			return insts.StatusAddressError
		}
		e.regFile.WriteReg(insts.RegESP, esp+4)
		e.regFile.WriteReg(inst.RA, value)
	}

	e.pc = nextPC
	return insts.StatusOK
}
