package emu

import (
	"math/bits"

	"github.com/sarchlab/vaultsim/insts"
)

type aluFunc func(rs1, rs2, imm uint64) uint64

// aluOps maps every ALU operation to its semantics. Mnemonics that share an
// opcode have already been told apart by the decoder, so adding a new one is
// a table entry.
var aluOps = map[insts.Op]aluFunc{
	insts.OpADD: func(a, b, _ uint64) uint64 { return a + b },
	insts.OpSUB: func(a, b, _ uint64) uint64 { return a - b },
	insts.OpMUL: func(a, b, _ uint64) uint64 { return a * b },
	insts.OpAND: func(a, b, _ uint64) uint64 { return a & b },
	insts.OpOR:  func(a, b, _ uint64) uint64 { return a | b },
	insts.OpXOR: func(a, b, _ uint64) uint64 { return a ^ b },
	insts.OpNOT: func(a, _, _ uint64) uint64 { return ^a },

	insts.OpADDI: func(a, _, imm uint64) uint64 { return a + imm },
	insts.OpROL:  func(a, _, imm uint64) uint64 { return bits.RotateLeft64(a, int(imm%64)) },
	insts.OpMULI: func(a, _, imm uint64) uint64 { return a * imm },
	insts.OpMODI: func(a, _, imm uint64) uint64 {
		if imm == 0 {
			return 0
		}
		return a % imm
	},

	// Loads, stores and vault accesses compute an effective address.
	insts.OpLW:    EffectiveAddress,
	insts.OpSW:    EffectiveAddress,
	insts.OpVSIGN: EffectiveAddress,
}

// EffectiveAddress returns rs1 + imm.
func EffectiveAddress(rs1, _, imm uint64) uint64 {
	return rs1 + imm
}

// Compute evaluates op on its operands. ok is false when op has no ALU
// semantics (control flow, vault writes, unknown ops).
func Compute(op insts.Op, rs1, rs2, imm uint64) (result uint64, ok bool) {
	fn, ok := aluOps[op]
	if !ok {
		return 0, false
	}
	return fn(rs1, rs2, imm), true
}

// BranchTarget returns pc + disp with 64-bit wraparound.
func BranchTarget(pc uint64, disp int64) uint64 {
	return pc + uint64(disp)
}
