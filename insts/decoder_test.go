package insts_test

import (
	"encoding/hex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/insts"
)

// program is a minimal ByteSource over a byte slice.
type program []byte

func (p program) Len() int { return len(p) }

func (p program) Byte(addr int32) (byte, bool) {
	if addr < 0 || int(addr) >= len(p) {
		return 0, false
	}
	return p[addr], true
}

func code(digits string) program {
	b, err := hex.DecodeString(digits)
	Expect(err).NotTo(HaveOccurred())
	return program(b)
}

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("single-byte instructions", func() {
		It("should decode nop", func() {
			inst := decoder.Decode(code("00"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeNOP))
			Expect(inst.Status).To(Equal(insts.StatusOK))
			Expect(inst.RA).To(Equal(insts.RegNone))
			Expect(inst.RB).To(Equal(insts.RegNone))
			Expect(inst.ValP).To(Equal(int32(1)))
			Expect(inst.PredPC).To(Equal(int32(1)))
		})

		It("should decode halt with Halt status", func() {
			inst := decoder.Decode(code("10"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeHALT))
			Expect(inst.Status).To(Equal(insts.StatusHalt))
			Expect(inst.ValP).To(Equal(int32(1)))
		})

		It("should decode ret", func() {
			inst := decoder.Decode(code("90"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeRET))
			Expect(inst.Status).To(Equal(insts.StatusOK))
			Expect(inst.ValP).To(Equal(int32(1)))
		})
	})

	Describe("register instructions", func() {
		// rrmovl %esp, %ebp
		It("should decode rrmovl", func() {
			inst := decoder.Decode(code("2045"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeRRMOVL))
			Expect(inst.Ifun).To(Equal(uint8(0)))
			Expect(inst.RA).To(Equal(insts.RegESP))
			Expect(inst.RB).To(Equal(insts.RegEBP))
			Expect(inst.ValP).To(Equal(int32(2)))
		})

		// cmovne %eax, %ecx
		It("should decode a conditional move", func() {
			inst := decoder.Decode(code("2401"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeRRMOVL))
			Expect(insts.Cond(inst.Ifun)).To(Equal(insts.CondNE))
			Expect(inst.RA).To(Equal(insts.RegEAX))
			Expect(inst.RB).To(Equal(insts.RegECX))
		})

		// subl %ebx, %ecx
		It("should decode opl with its function", func() {
			inst := decoder.Decode(code("6131"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeOPL))
			Expect(insts.ALUFunc(inst.Ifun)).To(Equal(insts.ALUSub))
			Expect(inst.RA).To(Equal(insts.RegEBX))
			Expect(inst.RB).To(Equal(insts.RegECX))
		})

		// pushl %ebp
		It("should decode pushl with RegNone in rB", func() {
			inst := decoder.Decode(code("a058"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodePUSHL))
			Expect(inst.RA).To(Equal(insts.RegEBP))
			Expect(inst.RB).To(Equal(insts.RegNone))
			Expect(inst.Status).To(Equal(insts.StatusOK))
		})

		It("should report an address error for a register id above 8", func() {
			inst := decoder.Decode(code("20f0"), 0)

			Expect(inst.Status).To(Equal(insts.StatusAddressError))
		})

		It("should report an address error for a missing register byte", func() {
			inst := decoder.Decode(code("60"), 0)

			Expect(inst.Status).To(Equal(insts.StatusAddressError))
			Expect(inst.ValP).To(Equal(int32(1)))
		})
	})

	Describe("instructions with a constant word", func() {
		// irmovl $0x100, %esp
		It("should decode irmovl little-endian", func() {
			inst := decoder.Decode(code("308400010000"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeIRMOVL))
			Expect(inst.RA).To(Equal(insts.RegNone))
			Expect(inst.RB).To(Equal(insts.RegESP))
			Expect(inst.ValC).To(Equal(int32(0x100)))
			Expect(inst.ValP).To(Equal(int32(6)))
		})

		It("should sign-extend negative constants", func() {
			inst := decoder.Decode(code("3083ffffffff"), 0)

			Expect(inst.ValC).To(Equal(int32(-1)))
		})

		// mrmovl 8(%ebp), %ecx
		It("should decode mrmovl", func() {
			inst := decoder.Decode(code("501508000000"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeMRMOVL))
			Expect(inst.RA).To(Equal(insts.RegECX))
			Expect(inst.RB).To(Equal(insts.RegEBP))
			Expect(inst.ValC).To(Equal(int32(8)))
		})

		It("should predict jumps taken", func() {
			inst := decoder.Decode(code("00745b000000"), 1)

			Expect(inst.Icode).To(Equal(insts.IcodeJXX))
			Expect(insts.Cond(inst.Ifun)).To(Equal(insts.CondNE))
			Expect(inst.ValC).To(Equal(int32(0x5b)))
			Expect(inst.ValP).To(Equal(int32(6)))
			Expect(inst.PredPC).To(Equal(int32(0x5b)))
		})

		It("should predict calls taken", func() {
			inst := decoder.Decode(code("8024000000"), 0)

			Expect(inst.Icode).To(Equal(insts.IcodeCALL))
			Expect(inst.ValP).To(Equal(int32(5)))
			Expect(inst.PredPC).To(Equal(int32(0x24)))
		})

		It("should report an address error for a truncated constant", func() {
			inst := decoder.Decode(code("30840001"), 0)

			Expect(inst.Status).To(Equal(insts.StatusAddressError))
		})
	})

	Describe("status resolution", func() {
		It("should report invalid instructions", func() {
			inst := decoder.Decode(code("f0"), 0)

			Expect(inst.Status).To(Equal(insts.StatusInvalidInstruction))
		})

		It("should treat the reserved iaddl and leave codes as invalid", func() {
			Expect(decoder.Decode(code("c0"), 0).Status).To(Equal(insts.StatusInvalidInstruction))
			Expect(decoder.Decode(code("d0"), 0).Status).To(Equal(insts.StatusInvalidInstruction))
		})

		It("should report an address error for a PC past the end", func() {
			inst := decoder.Decode(code("10"), 1)

			Expect(inst.Status).To(Equal(insts.StatusAddressError))
			Expect(inst.Icode).To(Equal(insts.IcodeNOP))
			Expect(inst.Ifun).To(Equal(insts.FNone))
		})

		It("should report an address error for a negative PC", func() {
			inst := decoder.Decode(code("10"), -1)

			Expect(inst.Status).To(Equal(insts.StatusAddressError))
		})

		It("should let an address error override halt semantics", func() {
			inst := decoder.Decode(code("10"), 4)

			Expect(inst.Status).To(Equal(insts.StatusAddressError))
		})
	})
})
