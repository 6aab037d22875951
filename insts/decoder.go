package insts

// Op represents an operation after (opcode, funct3, funct7) resolution.
type Op uint16

// Operations.
const (
	OpUnknown Op = iota
	OpLW
	OpSW
	OpADD
	OpSUB
	OpMUL
	OpJAL
	OpBEQ
	OpAND
	OpOR
	OpXOR
	OpNOT
	OpEBREAK
	OpADDI
	OpROL
	OpMULI
	OpMODI
	OpVWR
	OpVINIT
	OpVSIGN
)

// Format represents an operand shape.
type Format uint8

// Instruction formats.
const (
	FormatUnknown    Format = iota
	FormatR                 // rd, rs1, rs2
	FormatUnary             // rd, rs1
	FormatI                 // rd, rs1, imm
	FormatLoad              // rd, imm(rs1)
	FormatStore             // rs2, imm(rs1)
	FormatJump              // rd, disp
	FormatBranch            // rs1, rs2, disp
	FormatVaultWrite        // rs1, index
	FormatVaultSign         // key, imm(rs1)
	FormatSystem            // no operands
)

// Instruction represents a decoded instruction.
type Instruction struct {
	Op     Op     // Resolved operation
	Format Format // Operand shape
	Word   uint64 // Raw encoding

	Opcode uint8
	Rd     uint8 // Destination register, or key slot for vsign
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8

	Imm          uint64 // Zero-extended immediate
	Displacement int64  // Signed displacement for jal and beq
}

// WritesRegister reports whether the instruction commits a result to rd.
func (i *Instruction) WritesRegister() bool {
	switch i.Format {
	case FormatR, FormatUnary, FormatI, FormatLoad, FormatJump:
		return true
	}

	return false
}

// ControlFlow reports whether the instruction can redirect the PC.
func (i *Instruction) ControlFlow() bool {
	return i.Op == OpJAL || i.Op == OpBEQ || i.Op == OpEBREAK
}

// Decoder decodes instruction words.
type Decoder struct {
	ops map[uint8]map[functKey]*Definition
}

type functKey struct {
	funct3 uint8
	funct7 uint8
}

// NewDecoder creates a decoder over the instruction table.
func NewDecoder() *Decoder {
	d := &Decoder{ops: make(map[uint8]map[functKey]*Definition)}

	for i := range table {
		def := &table[i]

		byFunct, ok := d.ops[def.Opcode]
		if !ok {
			byFunct = make(map[functKey]*Definition)
			d.ops[def.Opcode] = byFunct
		}

		byFunct[def.key()] = def
	}

	return d
}

// Decode decodes a word. Unknown encodings yield OpUnknown.
func (d *Decoder) Decode(word uint64) *Instruction {
	f := Decode(word)
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Word:   word,
		Opcode: f.Opcode,
		Rd:     f.Rd,
		Rs1:    f.Rs1,
		Rs2:    f.Rs2,
		Funct3: f.Funct3,
		Funct7: f.Funct7,
		Imm:    f.Imm,
	}

	def := d.lookup(f)
	if def == nil {
		return inst
	}

	inst.Op = def.Op
	inst.Format = def.Format

	switch def.Format {
	case FormatBranch:
		b := DecodeBranch(word)
		inst.Rd = 0
		inst.Funct7 = 0
		inst.Imm = 0
		inst.Displacement = b.Displacement
	case FormatJump:
		inst.Displacement = SignExtend(f.Imm, ImmBits)
	}

	return inst
}

func (d *Decoder) lookup(f Fields) *Definition {
	byFunct, ok := d.ops[f.Opcode]
	if !ok {
		return nil
	}

	if def, ok := byFunct[functKey{f.Funct3, f.Funct7}]; ok {
		return def
	}

	// The branch shape stores displacement bits where funct7 would be.
	if def, ok := byFunct[functKey{f.Funct3, 0}]; ok && def.Format == FormatBranch {
		return def
	}

	return nil
}
