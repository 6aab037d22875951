// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline and exposes the operations an interactive front end
// needs: assemble, load, step, run and inspect. Front ends read state through
// Snapshot and never touch the pipeline latches directly.
package core

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/sarchlab/vaultsim/asm"
	"github.com/sarchlab/vaultsim/config"
	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/loader"
	"github.com/sarchlab/vaultsim/timing/cache"
	"github.com/sarchlab/vaultsim/timing/pipeline"
	"github.com/sarchlab/vaultsim/vault"
)

// Stage names, in pipeline order.
const (
	StageIF  = "IF/ID"
	StageID  = "ID/EX"
	StageEX  = "EX/MEM"
	StageMEM = "MEM/WB"
)

// LatchView is a read-only view of one pipeline register.
type LatchView struct {
	Stage string
	Valid bool
	PC    uint64
	Text  string
}

// Snapshot is a copy of the visible machine state.
type Snapshot struct {
	Cycle     uint64
	PC        uint64
	Active    bool
	Fault     string
	Registers [insts.NumRegs]uint64
	Latches   [4]LatchView
	Stats     pipeline.Statistics
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
	loader  *loader.FileLoader

	assembler *asm.Assembler
	program   []uint64
	maxCycles uint64
}

// NewCore creates a new Core with the given register file and memory.
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...pipeline.PipelineOption) *Core {
	return &Core{
		Pipeline:  pipeline.NewPipeline(regFile, memory, opts...),
		regFile:   regFile,
		memory:    memory,
		loader:    loader.NewFileLoader(memory),
		assembler: asm.New(),
		maxCycles: pipeline.DefaultMaxCycles,
	}
}

// FromConfig builds a Core with memory, vault and data cache taken from
// cfg.
func FromConfig(cfg *config.Config, logger hclog.Logger) (*Core, error) {
	v, err := cfg.NewVault()
	if err != nil {
		return nil, err
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithVault(v),
		pipeline.WithLogger(logger.Named("pipeline")),
	}
	if cfg.DataCache.Enabled {
		opts = append(opts, pipeline.WithDataCache(cache.New(cfg.Cache())))
	}

	c := NewCore(&emu.RegFile{}, emu.NewMemory(cfg.MemorySize), opts...)
	c.SetMaxCycles(cfg.MaxCycles)

	return c, nil
}

// SetMaxCycles sets the ceiling Run uses when called with 0.
func (c *Core) SetMaxCycles(n uint64) {
	if n == 0 {
		n = pipeline.DefaultMaxCycles
	}
	c.maxCycles = n
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Vault returns the attached vault, if any.
func (c *Core) Vault() *vault.Vault {
	return c.Pipeline.Vault()
}

// Loader returns the file loader over the core's memory.
func (c *Core) Loader() *loader.FileLoader {
	return c.loader
}

// Program returns the loaded program.
func (c *Core) Program() []uint64 {
	return c.program
}

// Assemble assembles src without loading it.
func (c *Core) Assemble(src string) ([]uint64, error) {
	return c.assembler.AssembleString(src)
}

// LoadProgram places words at address 0 and rewinds the pipeline. The file
// loader continues after the program.
func (c *Core) LoadProgram(words []uint64) error {
	if err := c.Pipeline.LoadProgram(words); err != nil {
		return err
	}

	c.program = append([]uint64(nil), words...)
	c.loader.Seek(c.Pipeline.ProgramEnd())

	return nil
}

// LoadSource assembles src and loads it. Nothing is loaded on a syntax
// error.
func (c *Core) LoadSource(src string) error {
	words, err := c.Assemble(src)
	if err != nil {
		return err
	}

	return c.LoadProgram(words)
}

// Step advances the core by one cycle.
func (c *Core) Step() error {
	return c.Pipeline.Tick()
}

// Run runs until the pipeline drains, faults or exceeds maxCycles. A
// maxCycles of 0 uses the core's configured ceiling.
func (c *Core) Run(maxCycles uint64) error {
	if maxCycles == 0 {
		maxCycles = c.maxCycles
	}
	return c.Pipeline.Run(maxCycles)
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// IsActive reports whether the core has work left.
func (c *Core) IsActive() bool {
	return c.Pipeline.Active()
}

// Halted returns true if the core has drained or faulted.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Reset clears registers and memory, reloads the program and rewinds the
// pipeline.
func (c *Core) Reset() error {
	c.regFile.Reset()
	c.memory.Reset()
	c.loader.Reset()

	if c.program == nil {
		c.Pipeline.Reset()
		return nil
	}

	return c.LoadProgram(c.program)
}

// SetRegister writes a general-purpose register. Writes to x0 are
// ignored.
func (c *Core) SetRegister(index int, value uint64) error {
	return c.regFile.Set(index, value)
}

// MemoryWindow returns n words starting at addr.
func (c *Core) MemoryWindow(addr uint64, n int) ([]uint64, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative window size %d", n)
	}

	words := make([]uint64, n)
	for i := range words {
		w, err := c.memory.Read64(addr + uint64(i)*8)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}

	return words, nil
}

// Snapshot copies the visible state.
func (c *Core) Snapshot() Snapshot {
	p := c.Pipeline
	s := Snapshot{
		Cycle:     p.Stats().Cycles,
		PC:        p.PC(),
		Active:    p.Active(),
		Registers: c.regFile.X,
		Stats:     p.Stats(),
	}

	if err := p.Fault(); err != nil {
		s.Fault = err.Error()
	}

	ifid := p.GetIFID()
	s.Latches[0] = LatchView{Stage: StageIF, Valid: ifid.Valid, PC: ifid.PC}
	if ifid.Valid {
		s.Latches[0].Text = asm.Disassemble(ifid.InstructionWord)
	}

	idex, exmem, memwb := p.GetIDEX(), p.GetEXMEM(), p.GetMEMWB()
	s.Latches[1] = latch(StageID, idex.Valid, idex.PC, idex.Inst)
	s.Latches[2] = latch(StageEX, exmem.Valid, exmem.PC, exmem.Inst)
	s.Latches[3] = latch(StageMEM, memwb.Valid, memwb.PC, memwb.Inst)

	return s
}

func latch(stage string, valid bool, pc uint64, inst *insts.Instruction) LatchView {
	v := LatchView{Stage: stage, Valid: valid, PC: pc}
	if valid && inst != nil {
		v.Text = asm.Disassemble(inst.Word)
	}
	return v
}
