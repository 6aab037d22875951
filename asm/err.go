package asm

import (
	"errors"

	"github.com/sarchlab/vaultsim/translate"
)

var f = translate.From

var (
	ErrUnknownMnemonic = errors.New(f("unknown mnemonic"))
	ErrOperandCount    = errors.New(f("wrong operand count"))
	ErrRegister        = errors.New(f("malformed register"))
	ErrImmediate       = errors.New(f("malformed immediate"))
	ErrIndexedOperand  = errors.New(f("malformed indexed operand"))
	ErrExpression      = errors.New(f("bad expression"))
)

// SyntaxError reports the 1-based source line an assembly error occurred on.
type SyntaxError struct {
	Line int
	Text string
	Err  error
}

func (err *SyntaxError) Error() string {
	return f("line %d '%v': %v", err.Line, err.Text, err.Err)
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}
