package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vaultsim/insts"
)

// Execution errors.
var (
	ErrIllegalInstruction = errors.New("illegal instruction")
	ErrNoVault            = errors.New("no vault attached")
)

// Fault reports an instruction that could not complete.
type Fault struct {
	PC  uint64
	Op  insts.Op
	Err error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at pc %#x (%v): %v", f.PC, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// RunawayError reports a program still running when the step ceiling was
// reached. The machine state is left as it was for inspection.
type RunawayError struct {
	Limit uint64
	Unit  string
	PC    uint64
}

func (e *RunawayError) Error() string {
	return fmt.Sprintf("program still running after %d %s (pc %#x)", e.Limit, e.Unit, e.PC)
}
