package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// asumImage is the array-sum program: Sum(array, 4) over
// {0xd, 0xc0, 0xb00, 0xa000} with the stack at 0x100.
const asumImage = "3084000100003085000100008024000000100000" +
	"0d000000c0000000000b000000a00000" +
	"a0582045308004000000a008308214000000a02880420000002054b05890" +
	"a058204550150800000050250c000000630062227378000000" +
	"506100000000606030830400000060313083ffffffff6032745b000000" +
	"2054b05890"

func newEmulator(digits string, opts ...emu.EmulatorOption) *emu.Emulator {
	img, err := emu.ParseImage(digits)
	Expect(err).NotTo(HaveOccurred())
	return emu.NewEmulator(img, opts...)
}

var _ = Describe("Emulator", func() {
	Describe("Step", func() {
		It("should execute one instruction per step", func() {
			e := newEmulator("308005000000" + "30810a000000" + "6001" + "10")

			Expect(e.Step().Status).To(Equal(insts.StatusOK))
			Expect(e.PC()).To(Equal(int32(6)))
			Expect(e.RegFile().ReadReg(insts.RegEAX)).To(Equal(int32(5)))
			Expect(e.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should not step past halt", func() {
			e := newEmulator("10")

			Expect(e.Step().Status).To(Equal(insts.StatusHalt))
			Expect(e.Step().Status).To(Equal(insts.StatusHalt))
			Expect(e.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should report the instruction limit", func() {
			e := newEmulator("7000000000", emu.WithMaxInstructions(3))

			Expect(e.Run()).To(Equal(insts.StatusOK))
			Expect(e.Step().Err).To(HaveOccurred())
			Expect(e.InstructionCount()).To(Equal(uint64(3)))
		})
	})

	Describe("Run", func() {
		It("should add two registers", func() {
			e := newEmulator("308005000000" + "30810a000000" + "6001" + "10")

			Expect(e.Run()).To(Equal(insts.StatusHalt))
			Expect(e.RegFile().ReadReg(insts.RegECX)).To(Equal(int32(15)))
			Expect(e.RegFile().CC).To(Equal(emu.ConditionCodes{}))
		})

		It("should store and load through memory", func() {
			e := newEmulator("308007000000" + "308400010000" +
				"400400000000" + "501400000000" + "10")

			Expect(e.Run()).To(Equal(insts.StatusHalt))
			Expect(e.RegFile().ReadReg(insts.RegECX)).To(Equal(int32(7)))
		})

		It("should fault on a store to a read address", func() {
			// mrmovl 0(%eax),%ecx ; rmmovl %ecx,0(%eax) with %eax = 0
			e := newEmulator("501000000000" + "401000000000" + "10")

			Expect(e.Run()).To(Equal(insts.StatusAddressError))
			Expect(e.PC()).To(Equal(int32(6)))
		})

		It("should honor conditional moves", func() {
			// irmovl $1,%eax ; xorl %ecx,%ecx ; cmove %eax,%edx ; cmovne %eax,%ebx ; halt
			e := newEmulator("308001000000" + "6311" + "2302" + "2403" + "10")

			Expect(e.Run()).To(Equal(insts.StatusHalt))
			Expect(e.RegFile().ReadReg(insts.RegEDX)).To(Equal(int32(1)))
			Expect(e.RegFile().ReadReg(insts.RegEBX)).To(Equal(int32(0)))
		})

		It("should stop on an invalid instruction", func() {
			e := newEmulator("00f0")

			Expect(e.Run()).To(Equal(insts.StatusInvalidInstruction))
		})

		It("should stop on a fetch outside the image", func() {
			e := newEmulator("00", emu.WithEntryPC(1))

			Expect(e.Run()).To(Equal(insts.StatusAddressError))
		})

		It("should sum an array with calls and returns", func() {
			e := newEmulator(asumImage)

			Expect(e.Run()).To(Equal(insts.StatusHalt))

			regs := e.RegFile()
			Expect(regs.ReadReg(insts.RegEAX)).To(Equal(int32(0xabcd)))
			Expect(regs.ReadReg(insts.RegECX)).To(Equal(int32(0x24)))
			Expect(regs.ReadReg(insts.RegEDX)).To(Equal(int32(0)))
			Expect(regs.ReadReg(insts.RegEBX)).To(Equal(int32(-1)))
			Expect(regs.ReadReg(insts.RegESP)).To(Equal(int32(0x100)))
			Expect(regs.ReadReg(insts.RegEBP)).To(Equal(int32(0x100)))
			Expect(regs.ReadReg(insts.RegESI)).To(Equal(int32(0xa000)))
			Expect(regs.CC).To(Equal(emu.ConditionCodes{ZF: true}))
		})
	})
})
