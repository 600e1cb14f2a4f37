package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/insts"
)

var _ = Describe("Instruction codes", func() {
	It("should name implemented codes", func() {
		Expect(insts.IcodeIRMOVL.String()).To(Equal("irmovl"))
		Expect(insts.IcodePOPL.String()).To(Equal("popl"))
		Expect(insts.IcodeIADDL.String()).To(Equal("icode(0xc)"))
	})

	It("should only accept implemented codes as valid", func() {
		for i := insts.IcodeNOP; i <= insts.IcodePOPL; i++ {
			Expect(i.Valid()).To(BeTrue(), i.String())
		}
		Expect(insts.IcodeIADDL.Valid()).To(BeFalse())
		Expect(insts.IcodeLEAVE.Valid()).To(BeFalse())
		Expect(insts.Icode(0xF).Valid()).To(BeFalse())
	})

	It("should identify loads", func() {
		Expect(insts.IcodeMRMOVL.IsLoad()).To(BeTrue())
		Expect(insts.IcodePOPL.IsLoad()).To(BeTrue())
		Expect(insts.IcodeRET.IsLoad()).To(BeFalse())
	})
})

var _ = Describe("Registers", func() {
	It("should use 8 as the none sentinel", func() {
		Expect(insts.RegNone).To(Equal(insts.Reg(insts.NumRegs)))
		Expect(insts.RegNone.IsNone()).To(BeTrue())
		Expect(insts.RegESP.IsNone()).To(BeFalse())
	})

	It("should print assembler names", func() {
		Expect(insts.RegEAX.String()).To(Equal("%eax"))
		Expect(insts.RegEDI.String()).To(Equal("%edi"))
	})
})

var _ = Describe("Status", func() {
	It("should print short names", func() {
		Expect(insts.StatusBubble.String()).To(Equal("BUB"))
		Expect(insts.StatusOK.String()).To(Equal("AOK"))
		Expect(insts.StatusAddressError.String()).To(Equal("ADR"))
		Expect(insts.StatusInvalidInstruction.String()).To(Equal("INS"))
		Expect(insts.StatusHalt.String()).To(Equal("HLT"))
	})

	It("should treat halt and errors as stopping statuses", func() {
		Expect(insts.StatusBubble.IsFault()).To(BeFalse())
		Expect(insts.StatusOK.IsFault()).To(BeFalse())
		Expect(insts.StatusAddressError.IsFault()).To(BeTrue())
		Expect(insts.StatusInvalidInstruction.IsFault()).To(BeTrue())
		Expect(insts.StatusHalt.IsFault()).To(BeTrue())
	})
})
