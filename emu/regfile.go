// Package emu provides the architectural state (registers and memory), the
// shared ALU and a functional one-instruction-per-step emulator.
package emu

import "github.com/sarchlab/vaultsim/insts"

// RegFile represents the register file.
// It contains 32 general-purpose 64-bit registers; X[0] always reads as 0.
type RegFile struct {
	X [insts.NumRegs]uint64
}

// ReadReg reads a register value. Register 0 and indices >= 32 return 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= insts.NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= insts.NumRegs {
		return
	}
	r.X[reg] = value
}

// Get reads a register, validating the index.
func (r *RegFile) Get(index int) (uint64, error) {
	if err := insts.CheckReg(index); err != nil {
		return 0, err
	}
	return r.ReadReg(uint8(index)), nil
}

// Set writes a register, validating the index. Writes to register 0 are
// accepted and discarded.
func (r *RegFile) Set(index int, value uint64) error {
	if err := insts.CheckReg(index); err != nil {
		return err
	}
	r.WriteReg(uint8(index), value)
	return nil
}

// Reset zeroes every register.
func (r *RegFile) Reset() {
	r.X = [insts.NumRegs]uint64{}
}
