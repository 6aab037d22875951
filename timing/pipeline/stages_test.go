package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/timing/cache"
	"github.com/sarchlab/vaultsim/timing/pipeline"
	"github.com/sarchlab/vaultsim/vault"
)

var _ = Describe("Pipeline Stages", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory(0)
	})

	Describe("FetchStage", func() {
		var fetchStage *pipeline.FetchStage

		BeforeEach(func() {
			fetchStage = pipeline.NewFetchStage(memory)
		})

		It("should fetch instruction from memory", func() {
			word := assemble("add x1, x2, x3")[0]
			Expect(memory.Write64(0x40, word)).To(Succeed())

			fetched, err := fetchStage.Fetch(0x40)

			Expect(err).NotTo(HaveOccurred())
			Expect(fetched).To(Equal(word))
		})

		It("should fail past the end of memory", func() {
			_, err := fetchStage.Fetch(memory.Size())

			Expect(err).To(MatchError(emu.ErrInsufficientData))
		})
	})

	Describe("DecodeStage", func() {
		var decodeStage *pipeline.DecodeStage

		BeforeEach(func() {
			decodeStage = pipeline.NewDecodeStage()
		})

		It("should decode register operands", func() {
			result := decodeStage.Decode(assemble("sub x5, x6, x7")[0])

			Expect(result.Inst.Op).To(Equal(insts.OpSUB))
			Expect(result.Rd).To(Equal(uint8(5)))
			Expect(result.Rs1).To(Equal(uint8(6)))
			Expect(result.Rs2).To(Equal(uint8(7)))
			Expect(result.RegWrite).To(BeTrue())
			Expect(result.MemRead).To(BeFalse())
			Expect(result.MemWrite).To(BeFalse())
		})

		It("should not write x0", func() {
			result := decodeStage.Decode(assemble("nop")[0])

			Expect(result.RegWrite).To(BeFalse())
		})

		It("should set load signals", func() {
			result := decodeStage.Decode(assemble("lw x1, 8(x2)")[0])

			Expect(result.MemRead).To(BeTrue())
			Expect(result.MemToReg).To(BeTrue())
			Expect(result.RegWrite).To(BeTrue())
		})

		It("should set store signals", func() {
			result := decodeStage.Decode(assemble("sw x1, 8(x2)")[0])

			Expect(result.MemWrite).To(BeTrue())
			Expect(result.RegWrite).To(BeFalse())
			Expect(result.Rs2).To(Equal(uint8(1)))
		})

		It("should flag control flow and vault instructions", func() {
			Expect(decodeStage.Decode(assemble("beq x1, x2, 8")[0]).IsBranch).To(BeTrue())
			Expect(decodeStage.Decode(assemble("jal x1, 8")[0]).IsBranch).To(BeTrue())
			Expect(decodeStage.Decode(assemble("ebreak")[0]).IsBranch).To(BeTrue())

			vsign := decodeStage.Decode(assemble("vsign 2, 0(x3)")[0])
			Expect(vsign.IsVault).To(BeTrue())
			Expect(vsign.RegWrite).To(BeFalse())
		})

		It("should decode unknown words as OpUnknown", func() {
			result := decodeStage.Decode(0xFF00000000000000)

			Expect(result.Inst.Op).To(Equal(insts.OpUnknown))
			Expect(result.RegWrite).To(BeFalse())
		})
	})

	Describe("ExecuteStage", func() {
		var (
			decodeStage  *pipeline.DecodeStage
			executeStage *pipeline.ExecuteStage
		)

		idex := func(src string, pc uint64) *pipeline.IDEXRegister {
			d := decodeStage.Decode(assemble(src)[0])
			return &pipeline.IDEXRegister{
				Valid:    true,
				PC:       pc,
				Inst:     d.Inst,
				Rd:       d.Rd,
				Rs1:      d.Rs1,
				Rs2:      d.Rs2,
				MemRead:  d.MemRead,
				MemWrite: d.MemWrite,
				RegWrite: d.RegWrite,
				MemToReg: d.MemToReg,
				IsBranch: d.IsBranch,
				IsVault:  d.IsVault,
			}
		}

		BeforeEach(func() {
			decodeStage = pipeline.NewDecodeStage()
			executeStage = pipeline.NewExecuteStage(regFile)
		})

		It("should compute ALU results from the register file", func() {
			regFile.WriteReg(2, 100)
			regFile.WriteReg(3, 50)

			result, err := executeStage.Execute(idex("add x1, x2, x3", 0))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ALUResult).To(Equal(uint64(150)))
			Expect(result.BranchTaken).To(BeFalse())
		})

		It("should compute effective addresses and store values", func() {
			regFile.WriteReg(2, 0x100)
			regFile.WriteReg(4, 77)

			result, err := executeStage.Execute(idex("sw x4, 16(x2)", 0))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ALUResult).To(Equal(uint64(0x110)))
			Expect(result.StoreValue).To(Equal(uint64(77)))
		})

		It("should resolve a taken beq", func() {
			regFile.WriteReg(1, 9)
			regFile.WriteReg(2, 9)

			result, err := executeStage.Execute(idex("beq x1, x2, -16", 0x40))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.BranchTaken).To(BeTrue())
			Expect(result.BranchTarget).To(Equal(uint64(0x30)))
		})

		It("should resolve a not-taken beq", func() {
			regFile.WriteReg(1, 1)

			result, err := executeStage.Execute(idex("beq x1, x2, 16", 0x40))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.BranchTaken).To(BeFalse())
		})

		It("should link on jal", func() {
			result, err := executeStage.Execute(idex("jal x1, 24", 0x10))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.BranchTaken).To(BeTrue())
			Expect(result.BranchTarget).To(Equal(uint64(0x28)))
			Expect(result.ALUResult).To(Equal(uint64(0x18)))
		})

		It("should halt on ebreak", func() {
			result, err := executeStage.Execute(idex("ebreak", 0))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Halt).To(BeTrue())
		})

		It("should reject unknown instructions", func() {
			d := decodeStage.Decode(0xFF00000000000000)
			_, err := executeStage.Execute(&pipeline.IDEXRegister{Valid: true, Inst: d.Inst})

			Expect(err).To(MatchError(emu.ErrIllegalInstruction))
		})
	})

	Describe("MemoryStage", func() {
		var (
			unit        *emu.MemoryUnit
			memoryStage *pipeline.MemoryStage
			decoder     *insts.Decoder
		)

		BeforeEach(func() {
			unit = emu.NewMemoryUnit(memory, nil)
			memoryStage = pipeline.NewMemoryStage(unit, nil)
			decoder = insts.NewDecoder()
		})

		It("should load data", func() {
			Expect(memory.Write64(0x80, 1234)).To(Succeed())

			result, err := memoryStage.Access(&pipeline.EXMEMRegister{
				Valid:     true,
				Inst:      decoder.Decode(assemble("lw x1, 0(x0)")[0]),
				ALUResult: 0x80,
				MemRead:   true,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemData).To(Equal(uint64(1234)))
			Expect(result.Accesses).To(BeEmpty())
		})

		It("should store data", func() {
			_, err := memoryStage.Access(&pipeline.EXMEMRegister{
				Valid:      true,
				Inst:       decoder.Decode(assemble("sw x1, 0(x0)")[0]),
				ALUResult:  0x88,
				StoreValue: 42,
				MemWrite:   true,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(memory.Read64(0x88)).To(Equal(uint64(42)))
		})

		It("should fail without a vault", func() {
			_, err := memoryStage.Access(&pipeline.EXMEMRegister{
				Valid:   true,
				Inst:    decoder.Decode(assemble("vwr x1, 0")[0]),
				IsVault: true,
			})

			Expect(err).To(MatchError(emu.ErrNoVault))
		})

		It("should write vault keys", func() {
			v := vault.New()
			unit.SetVault(v)

			_, err := memoryStage.Access(&pipeline.EXMEMRegister{
				Valid:      true,
				Inst:       decoder.Decode(assemble("vwr x1, 2")[0]),
				ALUResult:  2,
				StoreValue: 0xABCD,
				IsVault:    true,
			})
			Expect(err).NotTo(HaveOccurred())

			sig, err := v.Sign(2, vault.Digest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sig[0]).To(Equal(uint64(0xABCD)))
		})

		It("should record data-cache accesses", func() {
			dcache := cache.New(cache.DefaultConfig())
			memoryStage = pipeline.NewMemoryStage(unit, dcache)

			exmem := &pipeline.EXMEMRegister{
				Valid:     true,
				Inst:      decoder.Decode(assemble("lw x1, 0(x0)")[0]),
				ALUResult: 0x40,
				MemRead:   true,
			}

			first, err := memoryStage.Access(exmem)
			Expect(err).NotTo(HaveOccurred())
			second, err := memoryStage.Access(exmem)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Accesses).To(HaveLen(1))
			Expect(first.Accesses[0].Hit).To(BeFalse())
			Expect(second.Accesses[0].Hit).To(BeTrue())
		})
	})

	Describe("WritebackStage", func() {
		var writebackStage *pipeline.WritebackStage

		BeforeEach(func() {
			writebackStage = pipeline.NewWritebackStage(regFile)
		})

		It("should write the ALU result", func() {
			retired := writebackStage.Writeback(&pipeline.MEMWBRegister{
				Valid:     true,
				ALUResult: 7,
				Rd:        3,
				RegWrite:  true,
			})

			Expect(retired).To(BeTrue())
			Expect(regFile.ReadReg(3)).To(Equal(uint64(7)))
		})

		It("should prefer memory data for loads", func() {
			writebackStage.Writeback(&pipeline.MEMWBRegister{
				Valid:     true,
				ALUResult: 0x80,
				MemData:   99,
				Rd:        4,
				RegWrite:  true,
				MemToReg:  true,
			})

			Expect(regFile.ReadReg(4)).To(Equal(uint64(99)))
		})

		It("should never write x0", func() {
			writebackStage.Writeback(&pipeline.MEMWBRegister{
				Valid:     true,
				ALUResult: 5,
				Rd:        0,
				RegWrite:  true,
			})

			Expect(regFile.ReadReg(0)).To(BeZero())
		})

		It("should not retire an empty latch", func() {
			Expect(writebackStage.Writeback(&pipeline.MEMWBRegister{})).To(BeFalse())
		})
	})
})
