package insts

import "strings"

// Definition describes one mnemonic.
type Definition struct {
	Mnemonic string
	Op       Op
	Format   Format
	Opcode   uint8
	Funct3   uint8
	Funct7   uint8
}

func (d *Definition) key() functKey {
	return functKey{d.Funct3, d.Funct7}
}

// Fields returns the fixed fields of the definition. Callers fill in the
// operands.
func (d *Definition) Fields() Fields {
	return Fields{Opcode: d.Opcode, Funct3: d.Funct3, Funct7: d.Funct7}
}

var table = []Definition{
	{"lw", OpLW, FormatLoad, 0xA1, 5, 0},
	{"sw", OpSW, FormatStore, 0xB2, 6, 0},
	{"add", OpADD, FormatR, 0xC3, 1, 0x10},
	{"sub", OpSUB, FormatR, 0xC3, 2, 0x20},
	{"mul", OpMUL, FormatR, 0xC3, 3, 0x30},
	{"jal", OpJAL, FormatJump, 0xD4, 0, 0},
	{"beq", OpBEQ, FormatBranch, 0xE5, 4, 0},
	{"and", OpAND, FormatR, 0xF6, 1, 0x40},
	{"or", OpOR, FormatR, 0xF6, 2, 0x50},
	{"xor", OpXOR, FormatR, 0xF7, 3, 0x60},
	{"not", OpNOT, FormatUnary, 0xF7, 4, 0x70},
	{"ebreak", OpEBREAK, FormatSystem, 0x88, 7, 0},
	{"addi", OpADDI, FormatI, 0xA9, 1, 0},
	{"rol", OpROL, FormatI, 0xAA, 3, 0},
	{"muli", OpMULI, FormatI, 0xAB, 4, 0},
	{"modi", OpMODI, FormatI, 0xAC, 5, 0},
	{"vwr", OpVWR, FormatVaultWrite, 0x90, 1, 0},
	{"vinit", OpVINIT, FormatVaultWrite, 0x91, 2, 0},
	{"vsign", OpVSIGN, FormatVaultSign, 0x92, 3, 0},
}

var (
	byMnemonic = make(map[string]*Definition, len(table))
	byOp       = make(map[Op]*Definition, len(table))
)

func init() {
	for i := range table {
		byMnemonic[table[i].Mnemonic] = &table[i]
		byOp[table[i].Op] = &table[i]
	}
}

// Lookup finds the definition of a mnemonic, case-insensitively.
func Lookup(mnemonic string) (*Definition, bool) {
	def, ok := byMnemonic[strings.ToLower(mnemonic)]
	return def, ok
}

// Definitions returns a copy of the instruction table.
func Definitions() []Definition {
	out := make([]Definition, len(table))
	copy(out, table)

	return out
}

// String returns the mnemonic of op.
func (op Op) String() string {
	if def, ok := byOp[op]; ok {
		return def.Mnemonic
	}

	return "unknown"
}
