// Package insts provides the instruction set definitions, the 64-bit
// bit-field codec and the decoder.
//
// Every instruction is one 64-bit word with a single canonical layout:
//
//	63    56 55 51 50 46 45 41 40 38 37    31 30          0
//	| opcode |  rd |  rs1|  rs2| f3 |  funct7 |    imm      |
//
// Mnemonics that share an opcode are told apart by (funct3, funct7).
// Branches reuse the funct7 and imm span for a 38-bit signed displacement.
//
// Usage:
//
//	word := insts.Encode(insts.Fields{Opcode: 0xC3, Rd: 1, Rs1: 2, Rs2: 3, Funct3: 1, Funct7: 0x10})
//	inst := insts.NewDecoder().Decode(word) // add x1, x2, x3
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
