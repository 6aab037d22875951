package pipeline

import (
	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/timing/cache"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{
		memory: memory,
	}
}

// Fetch reads the instruction word at the given PC.
func (s *FetchStage) Fetch(pc uint64) (uint64, error) {
	return s.memory.Read64(pc)
}

// DecodeStage splits instruction words into fields and control signals.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{
		decoder: insts.NewDecoder(),
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst *insts.Instruction

	// Destination and source registers.
	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Control signals.
	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool
	IsBranch bool
	IsVault  bool
}

// Decode decodes the instruction and derives its control signals.
func (s *DecodeStage) Decode(word uint64) DecodeResult {
	inst := s.decoder.Decode(word)
	result := DecodeResult{
		Inst:     inst,
		Rd:       inst.Rd,
		Rs1:      inst.Rs1,
		Rs2:      inst.Rs2,
		RegWrite: inst.WritesRegister() && inst.Rd != 0,
		IsBranch: inst.ControlFlow(),
	}

	switch inst.Op {
	case insts.OpLW:
		result.MemRead = true
		result.MemToReg = true
	case insts.OpSW:
		result.MemWrite = true
	case insts.OpVWR, insts.OpVINIT, insts.OpVSIGN:
		result.IsVault = true
	}

	return result
}

// ExecuteStage handles ALU operations, address calculation and branch
// resolution. Source registers are read here.
type ExecuteStage struct {
	regFile *emu.RegFile
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(regFile *emu.RegFile) *ExecuteStage {
	return &ExecuteStage{
		regFile: regFile,
	}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUResult  uint64
	StoreValue uint64

	// Branch result.
	BranchTaken  bool
	BranchTarget uint64

	// Halt is set by ebreak.
	Halt bool
}

// Execute performs the operation of the instruction in the ID/EX register.
func (s *ExecuteStage) Execute(idex *IDEXRegister) (ExecuteResult, error) {
	result := ExecuteResult{}
	inst := idex.Inst

	if inst == nil {
		return result, nil
	}

	rs1 := s.regFile.ReadReg(idex.Rs1)
	rs2 := s.regFile.ReadReg(idex.Rs2)

	switch inst.Op {
	case insts.OpUnknown:
		return result, emu.ErrIllegalInstruction
	case insts.OpJAL:
		result.ALUResult = idex.PC + 8
		result.BranchTaken = true
		result.BranchTarget = emu.BranchTarget(idex.PC, inst.Displacement)
	case insts.OpBEQ:
		if rs1 == rs2 {
			result.BranchTaken = true
			result.BranchTarget = emu.BranchTarget(idex.PC, inst.Displacement)
		}
	case insts.OpEBREAK:
		result.Halt = true
	case insts.OpVWR, insts.OpVINIT:
		result.ALUResult = inst.Imm
		result.StoreValue = rs1
	default:
		v, ok := emu.Compute(inst.Op, rs1, rs2, inst.Imm)
		if !ok {
			return result, emu.ErrIllegalInstruction
		}
		result.ALUResult = v
		result.StoreValue = rs2
	}

	return result, nil
}

// MemoryStage handles data memory and vault accesses.
type MemoryStage struct {
	unit  *emu.MemoryUnit
	cache *cache.Cache
}

// NewMemoryStage creates a new memory stage. dcache may be nil.
func NewMemoryStage(unit *emu.MemoryUnit, dcache *cache.Cache) *MemoryStage {
	return &MemoryStage{
		unit:  unit,
		cache: dcache,
	}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	MemData uint64

	// Accesses lists the data-cache results of this instruction.
	Accesses []cache.AccessResult
}

// Access performs the memory or vault operation of the instruction in the
// EX/MEM register. ALU results pass through untouched.
func (s *MemoryStage) Access(exmem *EXMEMRegister) (MemoryResult, error) {
	result := MemoryResult{}
	inst := exmem.Inst

	switch {
	case exmem.MemRead:
		data, err := s.unit.Load(exmem.ALUResult)
		if err != nil {
			return result, err
		}
		result.MemData = data
		s.record(&result, exmem.ALUResult, false, 1)
	case exmem.MemWrite:
		if err := s.unit.Store(exmem.ALUResult, exmem.StoreValue); err != nil {
			return result, err
		}
		s.record(&result, exmem.ALUResult, true, 1)
	case exmem.IsVault && inst.Op == insts.OpVSIGN:
		if err := s.unit.VaultSign(inst.Rd, exmem.ALUResult); err != nil {
			return result, err
		}
		s.record(&result, exmem.ALUResult, false, 4)
		s.record(&result, exmem.ALUResult+32, true, 4)
	case exmem.IsVault:
		if err := s.unit.VaultWrite(inst.Op, exmem.ALUResult, exmem.StoreValue); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *MemoryStage) record(result *MemoryResult, addr uint64, write bool, words int) {
	if s.cache == nil {
		return
	}

	for i := 0; i < words; i++ {
		a := addr + uint64(i)*8
		if write {
			result.Accesses = append(result.Accesses, s.cache.Write(a))
		} else {
			result.Accesses = append(result.Accesses, s.cache.Read(a))
		}
	}
}

// WritebackStage handles register writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback commits the MEM/WB result. It reports whether an instruction
// retired.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) bool {
	if !memwb.Valid {
		return false
	}

	if memwb.RegWrite && memwb.Rd != 0 {
		s.regFile.WriteReg(memwb.Rd, memwb.Result())
	}

	return true
}
