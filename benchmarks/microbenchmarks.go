package benchmarks

import "github.com/sarchlab/y86sim/insts"

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets one pipeline behavior.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		functionCalls(),
		stackOperations(),
		branchHeavy(),
		loopSimulation(10),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(10),
		functionCalls(),
		branchHeavy(),
	}
}

// 1. Arithmetic Sequential - independent immediates, no hazards
func arithmeticSequential() Benchmark {
	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "6 independent irmovl - baseline CPI with no hazards",
		Program: BuildProgram(
			EncodeIRMOVL(1, insts.RegEAX),
			EncodeIRMOVL(2, insts.RegECX),
			EncodeIRMOVL(3, insts.RegEDX),
			EncodeIRMOVL(4, insts.RegEBX),
			EncodeIRMOVL(5, insts.RegESI),
			EncodeIRMOVL(6, insts.RegEDI),
			EncodeHALT(),
		),
		ExpectedEAX: 1,
	}
}

// 2. Dependency Chain - every addl reads the previous result
func dependencyChain() Benchmark {
	parts := [][]byte{
		EncodeIRMOVL(1, insts.RegEBX),
		EncodeIRMOVL(0, insts.RegEAX),
	}
	for i := 0; i < 10; i++ {
		parts = append(parts, EncodeOPL(insts.ALUAdd, insts.RegEBX, insts.RegEAX))
	}
	parts = append(parts, EncodeHALT())

	return Benchmark{
		Name:        "dependency_chain",
		Description: "10 dependent addl - forwarding without stalls",
		Program:     BuildProgram(parts...),
		ExpectedEAX: 10,
	}
}

// 3. Load/Use - every loaded value is consumed by the next instruction
//
//	0x00: irmovl $0x30, %edx
//	0x06: irmovl $0, %eax
//	0x0c: 4 x { mrmovl k(%edx), %ecx; addl %ecx, %eax }
//	0x2c: halt
//	0x30: .long 1, 2, 3, 4
func loadUse() Benchmark {
	parts := [][]byte{
		EncodeIRMOVL(0x30, insts.RegEDX),
		EncodeIRMOVL(0, insts.RegEAX),
	}
	for k := int32(0); k < 4; k++ {
		parts = append(parts,
			EncodeMRMOVL(4*k, insts.RegEDX, insts.RegECX),
			EncodeOPL(insts.ALUAdd, insts.RegECX, insts.RegEAX),
		)
	}
	parts = append(parts,
		EncodeHALT(),
		EncodePad(3),
		EncodeWord(1), EncodeWord(2), EncodeWord(3), EncodeWord(4),
	)

	return Benchmark{
		Name:        "load_use",
		Description: "4 loads each feeding the next addl - one stall per load",
		Program:     BuildProgram(parts...),
		ExpectedEAX: 10,
	}
}

// 4. Memory Sequential - stores to one line, then loads it back
func memorySequential() Benchmark {
	parts := [][]byte{
		EncodeIRMOVL(0x200, insts.RegEDX),
		EncodeIRMOVL(5, insts.RegECX),
	}
	for k := int32(0); k < 4; k++ {
		parts = append(parts, EncodeRMMOVL(insts.RegECX, 4*k, insts.RegEDX))
	}
	parts = append(parts, EncodeIRMOVL(0, insts.RegEAX))
	for k := int32(0); k < 4; k++ {
		parts = append(parts,
			EncodeMRMOVL(4*k, insts.RegEDX, insts.RegESI),
			EncodeOPL(insts.ALUAdd, insts.RegESI, insts.RegEAX),
		)
	}
	parts = append(parts, EncodeHALT())

	return Benchmark{
		Name:        "memory_sequential",
		Description: "4 stores then 4 loads within one cache line",
		Program:     BuildProgram(parts...),
		ExpectedEAX: 20,
	}
}

// 5. Function Calls - call/ret overhead
//
//	0x00: irmovl $0x400, %esp
//	0x06: irmovl $1, %ebx
//	0x0c: irmovl $0, %eax
//	0x12: 4 x call f
//	0x26: halt
//	0x27: f: addl %ebx, %eax
//	0x29: ret
func functionCalls() Benchmark {
	const f = 0x27

	return Benchmark{
		Name:        "function_calls",
		Description: "4 calls to a leaf function - ret drains the fetch stage",
		Program: BuildProgram(
			EncodeIRMOVL(0x400, insts.RegESP),
			EncodeIRMOVL(1, insts.RegEBX),
			EncodeIRMOVL(0, insts.RegEAX),
			EncodeCALL(f),
			EncodeCALL(f),
			EncodeCALL(f),
			EncodeCALL(f),
			EncodeHALT(),
			EncodeOPL(insts.ALUAdd, insts.RegEBX, insts.RegEAX),
			EncodeRET(),
		),
		ExpectedEAX: 4,
	}
}

// 6. Stack Operations - push, pop and a popped value used at once
func stackOperations() Benchmark {
	return Benchmark{
		Name:        "stack_operations",
		Description: "pushl/popl round trip with a load/use on the popped value",
		Program: BuildProgram(
			EncodeIRMOVL(0x400, insts.RegESP),
			EncodeIRMOVL(7, insts.RegEAX),
			EncodePUSHL(insts.RegEAX),
			EncodePOPL(insts.RegECX),
			EncodeRRMOVL(insts.RegECX, insts.RegEDX),
			EncodeOPL(insts.ALUAdd, insts.RegEDX, insts.RegEAX),
			EncodeHALT(),
		),
		ExpectedEAX: 14,
	}
}

// 7. Branch Heavy - a not-taken je every iteration
//
//	0x00: irmovl $5, %eax
//	0x06: irmovl $1, %ebx
//	0x0c: loop: subl %ebx, %eax
//	0x0e: je done
//	0x13: jmp loop
//	0x18: done: halt
func branchHeavy() Benchmark {
	const (
		loop = 0x0c
		done = 0x18
	)

	return Benchmark{
		Name:        "branch_heavy",
		Description: "je not taken 4 times - one misprediction per iteration",
		Program: BuildProgram(
			EncodeIRMOVL(5, insts.RegEAX),
			EncodeIRMOVL(1, insts.RegEBX),
			EncodeOPL(insts.ALUSub, insts.RegEBX, insts.RegEAX),
			EncodeJXX(insts.CondE, done),
			EncodeJXX(insts.CondAlways, loop),
			EncodeHALT(),
		),
		ExpectedEAX: 0,
	}
}

// 8. Loop Simulation - counting loop with a taken backward jne
//
//	0x00: irmovl $n, %eax
//	0x06: irmovl $1, %ebx
//	0x0c: loop: addl %ebx, %ecx
//	0x0e: addl %ebx, %edx
//	0x10: addl %ebx, %esi
//	0x12: subl %ebx, %eax
//	0x14: jne loop
//	0x19: halt
func loopSimulation(n int32) Benchmark {
	const loop = 0x0c

	return Benchmark{
		Name:        "loop_simulation",
		Description: "counting loop - only the final jne mispredicts",
		Program: BuildProgram(
			EncodeIRMOVL(n, insts.RegEAX),
			EncodeIRMOVL(1, insts.RegEBX),
			EncodeOPL(insts.ALUAdd, insts.RegEBX, insts.RegECX),
			EncodeOPL(insts.ALUAdd, insts.RegEBX, insts.RegEDX),
			EncodeOPL(insts.ALUAdd, insts.RegEBX, insts.RegESI),
			EncodeOPL(insts.ALUSub, insts.RegEBX, insts.RegEAX),
			EncodeJXX(insts.CondNE, loop),
			EncodeHALT(),
		),
		ExpectedEAX: 0,
	}
}
