package insts

// Field positions and widths of the canonical layout.
const (
	OpcodeShift = 56
	RdShift     = 51
	Rs1Shift    = 46
	Rs2Shift    = 41
	Funct3Shift = 38
	Funct7Shift = 31

	OpcodeMask = 0xFF
	RegMask    = 0x1F
	Funct3Mask = 0x7
	Funct7Mask = 0x7F
	ImmMask    = 0x7FFFFFFF

	// ImmBits is the width of the general immediate field.
	ImmBits = 31
	// BranchDispBits is the width of the branch displacement (funct7 + imm).
	BranchDispBits = 38
	BranchDispMask = 1<<BranchDispBits - 1
)

// Fields holds the unpacked fields of an instruction word.
type Fields struct {
	Opcode uint8
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8
	Imm    uint64
}

// Masked returns a copy of f with every field truncated to its width.
func (f Fields) Masked() Fields {
	return Fields{
		Opcode: f.Opcode & OpcodeMask,
		Rd:     f.Rd & RegMask,
		Rs1:    f.Rs1 & RegMask,
		Rs2:    f.Rs2 & RegMask,
		Funct3: f.Funct3 & Funct3Mask,
		Funct7: f.Funct7 & Funct7Mask,
		Imm:    f.Imm & ImmMask,
	}
}

// Encode packs f into a word. Out-of-range field values are truncated.
func Encode(f Fields) uint64 {
	m := f.Masked()

	return uint64(m.Opcode)<<OpcodeShift |
		uint64(m.Rd)<<RdShift |
		uint64(m.Rs1)<<Rs1Shift |
		uint64(m.Rs2)<<Rs2Shift |
		uint64(m.Funct3)<<Funct3Shift |
		uint64(m.Funct7)<<Funct7Shift |
		m.Imm
}

// Decode unpacks a word into its fields.
func Decode(word uint64) Fields {
	return Fields{
		Opcode: uint8(word >> OpcodeShift & OpcodeMask),
		Rd:     uint8(word >> RdShift & RegMask),
		Rs1:    uint8(word >> Rs1Shift & RegMask),
		Rs2:    uint8(word >> Rs2Shift & RegMask),
		Funct3: uint8(word >> Funct3Shift & Funct3Mask),
		Funct7: uint8(word >> Funct7Shift & Funct7Mask),
		Imm:    word & ImmMask,
	}
}

// BranchFields holds the fields of the branch shape. rd is always zero and
// the displacement occupies bits 37-0.
type BranchFields struct {
	Opcode       uint8
	Rs1          uint8
	Rs2          uint8
	Funct3       uint8
	Displacement int64
}

// Masked returns a copy of b truncated to the branch shape, with the
// displacement sign-extended from bit 37.
func (b BranchFields) Masked() BranchFields {
	return BranchFields{
		Opcode:       b.Opcode & OpcodeMask,
		Rs1:          b.Rs1 & RegMask,
		Rs2:          b.Rs2 & RegMask,
		Funct3:       b.Funct3 & Funct3Mask,
		Displacement: SignExtend(uint64(b.Displacement)&BranchDispMask, BranchDispBits),
	}
}

// EncodeBranch packs b into a word using the branch shape.
func EncodeBranch(b BranchFields) uint64 {
	m := b.Masked()

	return uint64(m.Opcode)<<OpcodeShift |
		uint64(m.Rs1)<<Rs1Shift |
		uint64(m.Rs2)<<Rs2Shift |
		uint64(m.Funct3)<<Funct3Shift |
		uint64(m.Displacement)&BranchDispMask
}

// DecodeBranch unpacks a word encoded with EncodeBranch.
func DecodeBranch(word uint64) BranchFields {
	return BranchFields{
		Opcode:       uint8(word >> OpcodeShift & OpcodeMask),
		Rs1:          uint8(word >> Rs1Shift & RegMask),
		Rs2:          uint8(word >> Rs2Shift & RegMask),
		Funct3:       uint8(word >> Funct3Shift & Funct3Mask),
		Displacement: SignExtend(word&BranchDispMask, BranchDispBits),
	}
}

// SignExtend interprets the low bits of v as a two's-complement number.
func SignExtend(v uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}
