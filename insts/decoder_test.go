package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	encode := func(mnemonic string, f insts.Fields) uint64 {
		def, ok := insts.Lookup(mnemonic)
		Expect(ok).To(BeTrue())

		fixed := def.Fields()
		f.Opcode, f.Funct3, f.Funct7 = fixed.Opcode, fixed.Funct3, fixed.Funct7

		return insts.Encode(f)
	}

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("shared opcodes", func() {
		DescribeTable("resolve by funct3 and funct7",
			func(mnemonic string, op insts.Op) {
				inst := decoder.Decode(encode(mnemonic, insts.Fields{Rd: 1, Rs1: 2, Rs2: 3}))

				Expect(inst.Op).To(Equal(op))
				Expect(inst.Rd).To(Equal(uint8(1)))
				Expect(inst.Rs1).To(Equal(uint8(2)))
				Expect(inst.Rs2).To(Equal(uint8(3)))
			},
			Entry("add", "add", insts.OpADD),
			Entry("sub", "sub", insts.OpSUB),
			Entry("mul", "mul", insts.OpMUL),
			Entry("and", "and", insts.OpAND),
			Entry("or", "or", insts.OpOR),
			Entry("xor", "xor", insts.OpXOR),
			Entry("not", "not", insts.OpNOT),
		)

		It("should not match an add opcode with a foreign funct7", func() {
			inst := decoder.Decode(insts.Encode(insts.Fields{Opcode: 0xC3, Funct3: 1, Funct7: 0x20}))
			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})
	})

	// addi x5, x6, 42
	It("should decode addi with a zero-extended immediate", func() {
		inst := decoder.Decode(encode("addi", insts.Fields{Rd: 5, Rs1: 6, Imm: 42}))

		Expect(inst.Op).To(Equal(insts.OpADDI))
		Expect(inst.Format).To(Equal(insts.FormatI))
		Expect(inst.Imm).To(Equal(uint64(42)))
		Expect(inst.WritesRegister()).To(BeTrue())
	})

	It("should decode jal with a signed displacement", func() {
		inst := decoder.Decode(encode("jal", insts.Fields{Rd: 1, Imm: 0x7FFFFFF8}))

		Expect(inst.Op).To(Equal(insts.OpJAL))
		Expect(inst.Displacement).To(Equal(int64(-8)))
		Expect(inst.ControlFlow()).To(BeTrue())
	})

	It("should decode beq from the branch shape", func() {
		word := insts.EncodeBranch(insts.BranchFields{Opcode: 0xE5, Rs1: 1, Rs2: 2, Funct3: 4, Displacement: -(1 << 33)})
		inst := decoder.Decode(word)

		Expect(inst.Op).To(Equal(insts.OpBEQ))
		Expect(inst.Format).To(Equal(insts.FormatBranch))
		Expect(inst.Rs1).To(Equal(uint8(1)))
		Expect(inst.Rs2).To(Equal(uint8(2)))
		Expect(inst.Displacement).To(Equal(int64(-(1 << 33))))
		Expect(inst.WritesRegister()).To(BeFalse())
	})

	It("should decode vsign with the key slot in rd", func() {
		inst := decoder.Decode(encode("vsign", insts.Fields{Rd: 2, Rs1: 4, Imm: 64}))

		Expect(inst.Op).To(Equal(insts.OpVSIGN))
		Expect(inst.Rd).To(Equal(uint8(2)))
		Expect(inst.Imm).To(Equal(uint64(64)))
		Expect(inst.WritesRegister()).To(BeFalse())
	})

	It("should decode ebreak", func() {
		inst := decoder.Decode(encode("ebreak", insts.Fields{}))
		Expect(inst.Op).To(Equal(insts.OpEBREAK))
		Expect(inst.ControlFlow()).To(BeTrue())
	})

	It("should return OpUnknown for the zero word", func() {
		inst := decoder.Decode(0)
		Expect(inst.Op).To(Equal(insts.OpUnknown))
		Expect(inst.Format).To(Equal(insts.FormatUnknown))
	})
})
