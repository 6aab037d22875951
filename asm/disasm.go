package asm

import (
	"fmt"

	"github.com/sarchlab/vaultsim/insts"
)

var decoder = insts.NewDecoder()

// Disassemble renders a word as assembly text. Words that do not decode are
// rendered as a .word directive.
func Disassemble(word uint64) string {
	inst := decoder.Decode(word)
	op := inst.Op.String()

	switch inst.Format {
	case insts.FormatR:
		if inst.Op == insts.OpADD && inst.Rd == 0 && inst.Rs1 == 0 && inst.Rs2 == 0 {
			return "nop"
		}
		return fmt.Sprintf("%s x%d, x%d, x%d", op, inst.Rd, inst.Rs1, inst.Rs2)
	case insts.FormatUnary:
		return fmt.Sprintf("%s x%d, x%d", op, inst.Rd, inst.Rs1)
	case insts.FormatI:
		return fmt.Sprintf("%s x%d, x%d, %s", op, inst.Rd, inst.Rs1, imm(inst.Imm))
	case insts.FormatLoad:
		return fmt.Sprintf("%s x%d, %s(x%d)", op, inst.Rd, imm(inst.Imm), inst.Rs1)
	case insts.FormatStore:
		return fmt.Sprintf("%s x%d, %s(x%d)", op, inst.Rs2, imm(inst.Imm), inst.Rs1)
	case insts.FormatJump:
		return fmt.Sprintf("%s x%d, %d", op, inst.Rd, inst.Displacement)
	case insts.FormatBranch:
		return fmt.Sprintf("%s x%d, x%d, %d", op, inst.Rs1, inst.Rs2, inst.Displacement)
	case insts.FormatVaultWrite:
		return fmt.Sprintf("%s x%d, %d", op, inst.Rs1, inst.Imm)
	case insts.FormatVaultSign:
		return fmt.Sprintf("%s %d, %s(x%d)", op, inst.Rd, imm(inst.Imm), inst.Rs1)
	case insts.FormatSystem:
		return op
	}

	return fmt.Sprintf(".word %#016x", word)
}

func imm(v uint64) string {
	if v > 0xFFFF {
		return fmt.Sprintf("%#x", v)
	}
	return fmt.Sprintf("%d", v)
}
