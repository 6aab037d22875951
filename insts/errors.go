package insts

import "fmt"

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// OperandRangeError reports a register index outside 0-31.
type OperandRangeError struct {
	Index int
}

func (e *OperandRangeError) Error() string {
	return fmt.Sprintf("register index %d out of range [0, %d]", e.Index, NumRegs-1)
}

// CheckReg returns an OperandRangeError when index is not a valid register.
func CheckReg(index int) error {
	if index < 0 || index >= NumRegs {
		return &OperandRangeError{Index: index}
	}

	return nil
}
