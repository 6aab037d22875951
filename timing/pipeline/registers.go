// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/vaultsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint64

	// InstructionWord is the raw 64-bit instruction word.
	InstructionWord uint64
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register numbers. Values are read in the execute stage.
	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Control signals.
	MemRead  bool // True for lw
	MemWrite bool // True for sw
	RegWrite bool // True if instruction writes to register
	MemToReg bool // True if result comes from memory (load)
	IsBranch bool // True for jal, beq and ebreak
	IsVault  bool // True for vwr, vinit and vsign
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALU result (address for memory and vault ops, result for ALU ops,
	// slot index for vault writes).
	ALUResult uint64

	// StoreValue is the value for sw, vwr and vinit.
	StoreValue uint64

	// Destination register.
	Rd uint8

	// Control signals.
	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool
	IsVault  bool
}

// Clear resets the EX/MEM register to empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALUResult passed through from execute.
	ALUResult uint64

	// MemData is the data loaded from memory.
	MemData uint64

	// Destination register.
	Rd uint8

	// Control signals.
	RegWrite bool
	MemToReg bool
}

// Clear resets the MEM/WB register to empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// Result returns the value written back.
func (r *MEMWBRegister) Result() uint64 {
	if r.MemToReg {
		return r.MemData
	}
	return r.ALUResult
}
