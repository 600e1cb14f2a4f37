package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/timing/cache"
	"github.com/sarchlab/y86sim/timing/pipeline"
)

var _ = Describe("Stages", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	Describe("FetchStage", func() {
		var (
			stage *pipeline.FetchStage
			f     pipeline.FetchRegister
			m     pipeline.MemoryRegister
			w     pipeline.WritebackRegister
		)

		BeforeEach(func() {
			img, err := emu.ParseImage("308001000000" + "10")
			Expect(err).NotTo(HaveOccurred())
			stage = pipeline.NewFetchStage(img)
			f = pipeline.FetchRegister{Stat: insts.StatusOK, PredPC: 0}
			m.Clear()
			w.Clear()
		})

		It("should fetch from the predicted PC", func() {
			out := stage.Fetch(&f, &m, &w)

			Expect(out.PC).To(Equal(int32(0)))
			Expect(out.Inst.Icode).To(Equal(insts.IcodeIRMOVL))
			Expect(out.Inst.PredPC).To(Equal(int32(6)))
		})

		It("should recover the fall-through of a mispredicted jump", func() {
			m.Icode = insts.IcodeJXX
			m.Cnd = false
			m.ValA = 6

			Expect(stage.SelectPC(&f, &m, &w)).To(Equal(int32(6)))
		})

		It("should keep the prediction for a taken jump", func() {
			m.Icode = insts.IcodeJXX
			m.Cnd = true
			m.ValA = 6

			Expect(stage.SelectPC(&f, &m, &w)).To(Equal(int32(0)))
		})

		It("should use the return address of a ret in W", func() {
			w.Icode = insts.IcodeRET
			w.ValM = 6

			out := stage.Fetch(&f, &m, &w)

			Expect(out.PC).To(Equal(int32(6)))
			Expect(out.Inst.Status).To(Equal(insts.StatusHalt))
		})
	})

	Describe("Operands", func() {
		DescribeTable("register roles",
			func(icode insts.Icode, srcA, srcB, dstE, dstM insts.Reg) {
				a, b, e, m := pipeline.Operands(icode, insts.RegECX, insts.RegEDX)
				Expect([]insts.Reg{a, b, e, m}).To(Equal([]insts.Reg{srcA, srcB, dstE, dstM}))
			},
			Entry("nop", insts.IcodeNOP, insts.RegNone, insts.RegNone, insts.RegNone, insts.RegNone),
			Entry("rrmovl", insts.IcodeRRMOVL, insts.RegECX, insts.RegNone, insts.RegEDX, insts.RegNone),
			Entry("irmovl", insts.IcodeIRMOVL, insts.RegNone, insts.RegNone, insts.RegEDX, insts.RegNone),
			Entry("rmmovl", insts.IcodeRMMOVL, insts.RegECX, insts.RegEDX, insts.RegNone, insts.RegNone),
			Entry("mrmovl", insts.IcodeMRMOVL, insts.RegNone, insts.RegEDX, insts.RegNone, insts.RegECX),
			Entry("opl", insts.IcodeOPL, insts.RegECX, insts.RegEDX, insts.RegEDX, insts.RegNone),
			Entry("call", insts.IcodeCALL, insts.RegNone, insts.RegESP, insts.RegESP, insts.RegNone),
			Entry("ret", insts.IcodeRET, insts.RegESP, insts.RegESP, insts.RegESP, insts.RegNone),
			Entry("pushl", insts.IcodePUSHL, insts.RegECX, insts.RegESP, insts.RegESP, insts.RegNone),
			Entry("popl", insts.IcodePOPL, insts.RegESP, insts.RegESP, insts.RegESP, insts.RegECX),
		)
	})

	Describe("DecodeStage", func() {
		var (
			stage *pipeline.DecodeStage
			d     pipeline.DecodeRegister
			m     pipeline.MemoryRegister
			w     pipeline.WritebackRegister
			fwd   pipeline.ForwardingSources
		)

		BeforeEach(func() {
			stage = pipeline.NewDecodeStage(regFile, pipeline.NewHazardUnit())
			d.Clear()
			m.Clear()
			w.Clear()
			fwd = pipeline.ForwardingSources{
				Execute: pipeline.ExecuteResult{DstE: insts.RegNone},
				M:       &m,
				W:       &w,
			}
		})

		It("should read operands from the register file", func() {
			regFile.WriteReg(insts.RegECX, 3)
			regFile.WriteReg(insts.RegEDX, 4)
			d = pipeline.DecodeRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeOPL,
				RA: insts.RegECX, RB: insts.RegEDX,
			}

			out := stage.Decode(&d, fwd)

			Expect(out.ValA).To(Equal(int32(3)))
			Expect(out.ValB).To(Equal(int32(4)))
			Expect(out.ForwardA).To(Equal(pipeline.ForwardNone))
		})

		It("should pass valP as valA for calls", func() {
			d = pipeline.DecodeRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeCALL,
				RA: insts.RegNone, RB: insts.RegNone, ValC: 0x40, ValP: 0x11,
			}
			fwd.Execute.DstE = insts.RegESP
			fwd.Execute.ValE = 0xfc

			out := stage.Decode(&d, fwd)

			Expect(out.ValA).To(Equal(int32(0x11)))
			Expect(out.ForwardA).To(Equal(pipeline.ForwardValP))
			Expect(out.ValB).To(Equal(int32(0xfc)))
			Expect(out.ForwardB).To(Equal(pipeline.ForwardFromExecute))
		})

		It("should read RegNone as zero", func() {
			d = pipeline.DecodeRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeIRMOVL,
				RA: insts.RegNone, RB: insts.RegEAX, ValC: 9,
			}

			out := stage.Decode(&d, fwd)

			Expect(out.SrcA).To(Equal(insts.RegNone))
			Expect(out.ValA).To(Equal(int32(0)))
			Expect(out.DstE).To(Equal(insts.RegEAX))
		})
	})

	Describe("ExecuteStage", func() {
		var (
			stage *pipeline.ExecuteStage
			e     pipeline.ExecuteRegister
		)

		BeforeEach(func() {
			stage = pipeline.NewExecuteStage(regFile)
			e.Clear()
		})

		It("should compute valB - valA for subl and set the flags", func() {
			e = pipeline.ExecuteRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeOPL, Ifun: uint8(insts.ALUSub),
				ValA: 5, ValB: 5, DstE: insts.RegEAX, DstM: insts.RegNone,
			}

			out := stage.Execute(&e, true)

			Expect(out.ValE).To(Equal(int32(0)))
			Expect(out.SetCC).To(BeTrue())
			Expect(regFile.CC.ZF).To(BeTrue())
		})

		It("should leave the flags alone when not allowed", func() {
			e = pipeline.ExecuteRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeOPL, Ifun: uint8(insts.ALUSub),
				ValA: 5, ValB: 5, DstE: insts.RegEAX, DstM: insts.RegNone,
			}

			out := stage.Execute(&e, false)

			Expect(out.SetCC).To(BeFalse())
			Expect(regFile.CC).To(Equal(emu.ConditionCodes{}))
		})

		It("should leave the flags alone for a faulting opl", func() {
			e = pipeline.ExecuteRegister{
				Stat: insts.StatusAddressError, Icode: insts.IcodeOPL, Ifun: uint8(insts.ALUSub),
				ValA: 5, ValB: 5, DstE: insts.RegEAX, DstM: insts.RegNone,
			}

			Expect(stage.Execute(&e, true).SetCC).To(BeFalse())
		})

		It("should compute stack addresses", func() {
			e = pipeline.ExecuteRegister{
				Stat: insts.StatusOK, Icode: insts.IcodePUSHL,
				ValA: 1, ValB: 0x100, DstE: insts.RegESP, DstM: insts.RegNone,
			}
			Expect(stage.Execute(&e, true).ValE).To(Equal(int32(0xfc)))

			e.Icode = insts.IcodePOPL
			Expect(stage.Execute(&e, true).ValE).To(Equal(int32(0x104)))
		})

		It("should cancel the destination of a failed conditional move", func() {
			regFile.CC = emu.ConditionCodes{ZF: false}
			e = pipeline.ExecuteRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeRRMOVL, Ifun: uint8(insts.CondE),
				ValA: 7, DstE: insts.RegEBX, DstM: insts.RegNone,
			}

			out := stage.Execute(&e, true)

			Expect(out.Cnd).To(BeFalse())
			Expect(out.DstE).To(Equal(insts.RegNone))
			Expect(out.ValE).To(Equal(int32(7)))
		})

		It("should evaluate jump conditions", func() {
			regFile.CC = emu.ConditionCodes{SF: true}
			e = pipeline.ExecuteRegister{
				Stat: insts.StatusOK, Icode: insts.IcodeJXX, Ifun: uint8(insts.CondL),
				DstE: insts.RegNone, DstM: insts.RegNone,
			}

			Expect(stage.Execute(&e, true).Cnd).To(BeTrue())
		})
	})

	Describe("MemoryStage", func() {
		var (
			memory *emu.Memory
			stage  *pipeline.MemoryStage
			m      pipeline.MemoryRegister
		)

		BeforeEach(func() {
			memory = emu.NewMemory(emu.NewImage([]byte{0x2a, 0, 0, 0}))
			stage = pipeline.NewMemoryStage(memory, nil)
			m.Clear()
		})

		It("should read for mrmovl", func() {
			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeMRMOVL, ValE: 0}

			out := stage.Access(&m)

			Expect(out.Stat).To(Equal(insts.StatusOK))
			Expect(out.Read).To(BeTrue())
			Expect(out.ValM).To(Equal(int32(0x2a)))
		})

		It("should read popl and ret from valA", func() {
			Expect(memory.Write(0x80, 5)).To(BeTrue())
			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeRET, ValE: 0x84, ValA: 0x80}

			out := stage.Access(&m)

			Expect(out.Addr).To(Equal(int32(0x80)))
			Expect(out.ValM).To(Equal(int32(5)))
		})

		It("should write valA for pushl", func() {
			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodePUSHL, ValE: 0xfc, ValA: 9}

			out := stage.Access(&m)

			Expect(out.Write).To(BeTrue())
			Expect(memory.Words()).To(HaveKeyWithValue(int32(0xfc), int32(9)))
		})

		It("should flag an address error for a read outside the image", func() {
			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeMRMOVL, ValE: 0x40}

			Expect(stage.Access(&m).Stat).To(Equal(insts.StatusAddressError))
		})

		It("should flag an address error for a write to a read address", func() {
			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeMRMOVL, ValE: 0}
			stage.Access(&m)

			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeRMMOVL, ValE: 0, ValA: 1}
			Expect(stage.Access(&m).Stat).To(Equal(insts.StatusAddressError))
		})

		It("should not touch memory for an instruction that already faulted", func() {
			m = pipeline.MemoryRegister{Stat: insts.StatusHalt, Icode: insts.IcodeRMMOVL, ValE: 0x10, ValA: 1}

			out := stage.Access(&m)

			Expect(out.Stat).To(Equal(insts.StatusHalt))
			Expect(memory.Words()).To(BeEmpty())
		})

		It("should pass bubbles through", func() {
			Expect(stage.Access(&m).Stat).To(Equal(insts.StatusBubble))
		})

		It("should profile successful accesses in the data cache", func() {
			dcache := cache.New(cache.DefaultConfig())
			stage = pipeline.NewMemoryStage(memory, dcache)

			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeMRMOVL, ValE: 0}
			stage.Access(&m)
			m = pipeline.MemoryRegister{Stat: insts.StatusOK, Icode: insts.IcodeMRMOVL, ValE: 0x40}
			stage.Access(&m)

			stats := dcache.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
		})
	})

	Describe("WritebackStage", func() {
		var (
			stage *pipeline.WritebackStage
			w     pipeline.WritebackRegister
		)

		BeforeEach(func() {
			stage = pipeline.NewWritebackStage(regFile)
			w.Clear()
		})

		It("should write both destinations", func() {
			w = pipeline.WritebackRegister{
				Stat: insts.StatusOK, Icode: insts.IcodePOPL,
				ValE: 0x104, ValM: 7, DstE: insts.RegESP, DstM: insts.RegEBP,
			}

			stage.Writeback(&w)

			Expect(regFile.ReadReg(insts.RegESP)).To(Equal(int32(0x104)))
			Expect(regFile.ReadReg(insts.RegEBP)).To(Equal(int32(7)))
		})

		It("should let the memory result win for popl %esp", func() {
			w = pipeline.WritebackRegister{
				Stat: insts.StatusOK, Icode: insts.IcodePOPL,
				ValE: 0x104, ValM: 7, DstE: insts.RegESP, DstM: insts.RegESP,
			}

			stage.Writeback(&w)

			Expect(regFile.ReadReg(insts.RegESP)).To(Equal(int32(7)))
		})

		It("should not commit a faulting instruction", func() {
			w = pipeline.WritebackRegister{
				Stat: insts.StatusAddressError, Icode: insts.IcodeMRMOVL,
				ValM: 7, DstE: insts.RegNone, DstM: insts.RegEAX,
			}

			stage.Writeback(&w)

			Expect(regFile.ReadReg(insts.RegEAX)).To(Equal(int32(0)))
		})
	})
})
