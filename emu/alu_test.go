package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/insts"
)

var _ = Describe("ALU", func() {
	const allOnes = ^uint64(0)

	DescribeTable("Compute",
		func(op insts.Op, rs1, rs2, imm, want uint64) {
			got, ok := emu.Compute(op, rs1, rs2, imm)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		},
		Entry("add wraps", insts.OpADD, allOnes, uint64(2), uint64(0), uint64(1)),
		Entry("sub wraps", insts.OpSUB, uint64(0), uint64(1), uint64(0), allOnes),
		Entry("mul wraps", insts.OpMUL, uint64(1)<<63, uint64(2), uint64(0), uint64(0)),
		Entry("and", insts.OpAND, uint64(0b1100), uint64(0b1010), uint64(0), uint64(0b1000)),
		Entry("or", insts.OpOR, uint64(0b1100), uint64(0b1010), uint64(0), uint64(0b1110)),
		Entry("xor", insts.OpXOR, uint64(0b1100), uint64(0b1010), uint64(0), uint64(0b0110)),
		Entry("not", insts.OpNOT, uint64(0), uint64(99), uint64(0), allOnes),
		Entry("addi", insts.OpADDI, uint64(10), uint64(0), uint64(5), uint64(15)),
		Entry("rol", insts.OpROL, uint64(0x8000000000000001), uint64(0), uint64(4), uint64(0x18)),
		Entry("rol by 64 is identity", insts.OpROL, uint64(0x1234), uint64(0), uint64(64), uint64(0x1234)),
		Entry("rol by 68", insts.OpROL, uint64(1), uint64(0), uint64(68), uint64(16)),
		Entry("muli", insts.OpMULI, uint64(7), uint64(0), uint64(3), uint64(21)),
		Entry("modi", insts.OpMODI, uint64(17), uint64(0), uint64(5), uint64(2)),
		Entry("modi by zero", insts.OpMODI, uint64(17), uint64(0), uint64(0), uint64(0)),
		Entry("load address", insts.OpLW, uint64(200), uint64(0), uint64(100), uint64(300)),
	)

	It("should report ops without ALU semantics", func() {
		_, ok := emu.Compute(insts.OpBEQ, 1, 1, 0)
		Expect(ok).To(BeFalse())
		_, ok = emu.Compute(insts.OpUnknown, 1, 1, 0)
		Expect(ok).To(BeFalse())
	})

	It("should wrap branch targets", func() {
		Expect(emu.BranchTarget(16, -8)).To(Equal(uint64(8)))
		Expect(emu.BranchTarget(0, -8)).To(Equal(allOnes - 7))
	})
})
