package insts

// ByteSource is a read-only byte-addressed program store.
type ByteSource interface {
	// Len returns the number of addressable bytes.
	Len() int
	// Byte returns the byte at addr, or false if addr is out of bounds.
	Byte(addr int32) (byte, bool)
}

// Instruction represents a decoded Y86 instruction.
type Instruction struct {
	Icode Icode // Instruction code
	Ifun  uint8 // Function code

	// Register specifiers. RegNone when the instruction has none.
	RA Reg
	RB Reg

	// ValC is the sign-extended constant word.
	ValC int32

	// ValP is the address of the following instruction.
	ValP int32

	// PredPC is the predicted address of the next instruction to fetch.
	// Jumps and calls are predicted taken.
	PredPC int32

	// Status is the fetch status of the instruction.
	Status Status
}

// Decoder decodes Y86 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new Y86 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes the instruction starting at pc.
//
// Decoding never fails. Problems are reported through the Status field:
// AddressError when any required byte lies outside the image (this wins
// over every other status because the bytes could not be read),
// InvalidInstruction for an unknown instruction code, and Halt for halt.
func (d *Decoder) Decode(mem ByteSource, pc int32) Instruction {
	inst := Instruction{
		Icode: IcodeNOP,
		Ifun:  FNone,
		RA:    RegNone,
		RB:    RegNone,
	}

	addrErr := false
	next := pc

	first, ok := mem.Byte(pc)
	if !ok {
		addrErr = true
	} else {
		inst.Icode = Icode(first >> 4)
		inst.Ifun = first & 0xF
		next++
	}

	valid := inst.Icode.Valid()

	if valid && inst.Icode.NeedsRegIDs() {
		present, inRange := d.decodeRegIDs(mem, next, &inst)
		if present {
			next++
		}
		if !present || !inRange {
			addrErr = true
		}
	}

	if valid && inst.Icode.NeedsValC() {
		valC, ok := d.readWord(mem, next)
		if ok {
			inst.ValC = valC
			next += 4
		} else {
			addrErr = true
		}
	}

	inst.ValP = next
	if inst.Icode == IcodeJXX || inst.Icode == IcodeCALL {
		inst.PredPC = inst.ValC
	} else {
		inst.PredPC = inst.ValP
	}

	inst.Status = StatusOK
	if inst.Icode == IcodeHALT {
		inst.Status = StatusHalt
	}
	if !valid {
		inst.Status = StatusInvalidInstruction
	}
	if addrErr {
		inst.Status = StatusAddressError
	}

	return inst
}

// decodeRegIDs reads the register specifier byte.
// Format: rA (high nibble) | rB (low nibble)
// present is false if the byte lies outside the image; inRange is false if
// either nibble names a register outside 0-8.
func (d *Decoder) decodeRegIDs(mem ByteSource, addr int32, inst *Instruction) (present, inRange bool) {
	b, ok := mem.Byte(addr)
	if !ok {
		return false, false
	}

	inst.RA = Reg(b >> 4)
	inst.RB = Reg(b & 0xF)

	return true, inst.RA <= RegNone && inst.RB <= RegNone
}

// readWord reads a little-endian 32-bit word. The conversion to int32
// sign-extends the value.
func (d *Decoder) readWord(mem ByteSource, addr int32) (int32, bool) {
	var word uint32
	for i := int32(0); i < 4; i++ {
		b, ok := mem.Byte(addr + i)
		if !ok {
			return 0, false
		}
		word |= uint32(b) << (8 * i)
	}
	return int32(word), true
}
