package emu

import (
	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/vault"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true once the program has finished.
	Halted bool

	// Err is set if the instruction faulted.
	Err error
}

// Emulator executes instructions functionally, one per step, with the same
// semantics as the pipeline but without timing.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	mu      *MemoryUnit

	pc         uint64
	programEnd uint64 // 0 means no explicit end; a zero word stops fetch
	halted     bool

	instructionCount uint64
	maxInstructions  uint64 // 0 means DefaultMaxInstructions
}

// DefaultMaxInstructions is the Run ceiling when none is configured.
const DefaultMaxInstructions = 10000

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithVault attaches a vault for vwr, vinit and vsign.
func WithVault(v *vault.Vault) EmulatorOption {
	return func(e *Emulator) {
		e.mu.SetVault(v)
	}
}

// WithMaxInstructions sets the maximum number of instructions Run executes.
// A value of 0 means DefaultMaxInstructions.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator over the given state.
func NewEmulator(regFile *RegFile, memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: regFile,
		memory:  memory,
		decoder: insts.NewDecoder(),
		mu:      NewMemoryUnit(memory, nil),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the program counter.
func (e *Emulator) PC() uint64 {
	return e.pc
}

// SetPC sets the program counter and clears the halted flag.
func (e *Emulator) SetPC(pc uint64) {
	e.pc = pc
	e.halted = false
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted reports whether the program has finished.
func (e *Emulator) Halted() bool {
	return e.halted
}

// LoadProgram writes words at address 0 and records the program end.
func (e *Emulator) LoadProgram(words []uint64) error {
	if err := e.memory.LoadWords(0, words); err != nil {
		return err
	}

	e.programEnd = uint64(len(words)) * 8
	e.SetPC(0)
	e.instructionCount = 0

	return nil
}

func (e *Emulator) fetchBound() uint64 {
	if e.programEnd != 0 {
		return e.programEnd
	}
	return e.memory.Size()
}

// fetch returns the word at pc. ok is false once the program has ended.
func (e *Emulator) fetch() (word uint64, ok bool) {
	if e.halted || e.pc+8 > e.fetchBound() || e.pc+8 < e.pc {
		return 0, false
	}

	word, err := e.memory.Read64(e.pc)
	if err != nil || (word == 0 && e.programEnd == 0) {
		return 0, false
	}

	return word, true
}

// Step executes one instruction.
func (e *Emulator) Step() StepResult {
	word, ok := e.fetch()
	if !ok {
		e.halted = true
		return StepResult{Halted: true}
	}

	inst := e.decoder.Decode(word)
	e.instructionCount++

	if err := e.execute(inst); err != nil {
		e.halted = true
		return StepResult{Halted: true, Err: &Fault{PC: e.pc, Op: inst.Op, Err: err}}
	}

	return StepResult{Halted: e.halted}
}

func (e *Emulator) execute(inst *insts.Instruction) error {
	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)
	next := e.pc + 8

	switch inst.Op {
	case insts.OpUnknown:
		return ErrIllegalInstruction
	case insts.OpJAL:
		e.regFile.WriteReg(inst.Rd, next)
		next = BranchTarget(e.pc, inst.Displacement)
	case insts.OpBEQ:
		if rs1 == rs2 {
			next = BranchTarget(e.pc, inst.Displacement)
		}
	case insts.OpEBREAK:
		e.halted = true
	case insts.OpLW:
		v, err := e.mu.Load(EffectiveAddress(rs1, rs2, inst.Imm))
		if err != nil {
			return err
		}
		e.regFile.WriteReg(inst.Rd, v)
	case insts.OpSW:
		if err := e.mu.Store(EffectiveAddress(rs1, rs2, inst.Imm), rs2); err != nil {
			return err
		}
	case insts.OpVWR, insts.OpVINIT:
		if err := e.mu.VaultWrite(inst.Op, inst.Imm, rs1); err != nil {
			return err
		}
	case insts.OpVSIGN:
		if err := e.mu.VaultSign(inst.Rd, EffectiveAddress(rs1, rs2, inst.Imm)); err != nil {
			return err
		}
	default:
		v, ok := Compute(inst.Op, rs1, rs2, inst.Imm)
		if !ok {
			return ErrIllegalInstruction
		}
		e.regFile.WriteReg(inst.Rd, v)
	}

	e.pc = next

	return nil
}

// Run executes until the program halts. If the program is still running
// after the configured maximum number of instructions, Run returns a
// RunawayError.
func (e *Emulator) Run() error {
	limit := e.maxInstructions
	if limit == 0 {
		limit = DefaultMaxInstructions
	}

	for {
		if _, ok := e.fetch(); !ok {
			e.halted = true
			return nil
		}

		if e.instructionCount >= limit {
			return &RunawayError{Limit: limit, Unit: "instructions", PC: e.pc}
		}

		if r := e.Step(); r.Err != nil {
			return r.Err
		}
	}
}
