package pipeline

import (
	"github.com/hashicorp/go-hclog"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/timing/cache"
	"github.com/sarchlab/vaultsim/vault"
)

// DefaultMaxCycles is the ceiling Run applies when given 0.
const DefaultMaxCycles = 10000

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Fetched is the number of instruction words fetched.
	Fetched uint64
	// Flushes is the number of wrong-path instructions dropped.
	Flushes uint64
	// DataAccesses is the number of data-cache accesses modelled.
	DataAccesses uint64
	// DataHits is the number of data-cache hits.
	DataHits uint64
	// DataMisses is the number of data-cache misses.
	DataMisses uint64
	// DataLatency is the modelled data-cache latency in cycles. It is
	// reported, not stalled on.
	DataLatency uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithVault attaches the vault used by vwr, vinit and vsign.
func WithVault(v *vault.Vault) PipelineOption {
	return func(p *Pipeline) {
		p.memUnit.SetVault(v)
	}
}

// WithLogger sets the logger. Per-cycle traces are emitted at trace level.
func WithLogger(logger hclog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithDataCache enables the data-cache model.
func WithDataCache(dcache *cache.Cache) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = dcache
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
	memUnit *emu.MemoryUnit
	dcache  *cache.Cache

	logger hclog.Logger

	// Program counter
	pc uint64

	// programEnd bounds fetch. 0 means unknown: fetch stops at the end of
	// memory or at the first zero word.
	programEnd uint64

	// fault holds the error that stopped the pipeline, if any.
	fault error

	// Statistics
	stats Statistics
}

// NewPipeline creates a new pipeline over the given register file and
// memory.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile: regFile,
		memory:  memory,
		memUnit: emu.NewMemoryUnit(memory, nil),
		logger:  hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.fetchStage = NewFetchStage(memory)
	p.decodeStage = NewDecodeStage()
	p.executeStage = NewExecuteStage(regFile)
	p.memoryStage = NewMemoryStage(p.memUnit, p.dcache)
	p.writebackStage = NewWritebackStage(regFile)

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint64 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint64) {
	p.pc = pc
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// Vault returns the attached vault, if any.
func (p *Pipeline) Vault() *vault.Vault {
	return p.memUnit.Vault()
}

// DataCache returns the data-cache model, if any.
func (p *Pipeline) DataCache() *cache.Cache {
	return p.dcache
}

// Fault returns the error that stopped the pipeline, if any.
func (p *Pipeline) Fault() error {
	return p.fault
}

// ProgramEnd returns the explicit program end, or 0 if none is set.
func (p *Pipeline) ProgramEnd() uint64 {
	return p.programEnd
}

// SetProgramEnd bounds fetch to [0, end). 0 falls back to the zero-word
// sentinel.
func (p *Pipeline) SetProgramEnd(end uint64) {
	p.programEnd = end
}

// LoadProgram writes words from address 0, records the program end and
// resets the pipeline.
func (p *Pipeline) LoadProgram(words []uint64) error {
	if err := p.memory.LoadWords(0, words); err != nil {
		return err
	}

	p.programEnd = uint64(len(words)) * 8
	p.Reset()

	return nil
}

// Reset clears all pipeline state. Registers, memory and the program end
// are kept.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.pc = 0
	p.fault = nil
	p.stats = Statistics{}
}

func (p *Pipeline) fetchBound() uint64 {
	if p.programEnd != 0 {
		return p.programEnd
	}
	return p.memory.Size()
}

// canFetch reports whether the word at pc is part of the program.
func (p *Pipeline) canFetch() bool {
	if p.pc+8 > p.fetchBound() || p.pc+8 < p.pc {
		return false
	}

	if p.programEnd != 0 {
		return true
	}

	word, err := p.memory.Read64(p.pc)

	return err == nil && word != 0
}

// Active reports whether the pipeline still has work: an occupied latch or
// an instruction left to fetch. A faulted pipeline is not active.
func (p *Pipeline) Active() bool {
	if p.fault != nil {
		return false
	}

	return p.ifid.Valid || p.idex.Valid || p.exmem.Valid || p.memwb.Valid ||
		p.canFetch()
}

// Halted is the negation of Active.
func (p *Pipeline) Halted() bool {
	return !p.Active()
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF) so that each
// stage consumes what its upstream neighbour produced in the previous
// cycle. There is no forwarding and no stalling: source registers are read
// in EX, so a consumer must trail its producer by at least two
// instructions. Taken jal and beq redirect the PC in EX and drop the
// wrong-path instruction in IF/ID.
func (p *Pipeline) Tick() error {
	if p.fault != nil {
		return p.fault
	}

	if !p.Active() {
		return nil
	}

	p.stats.Cycles++

	// Stage 5: Writeback
	if p.writebackStage.Writeback(&p.memwb) {
		p.stats.Instructions++
	}
	p.memwb.Clear()

	// Stage 4: Memory
	if err := p.doMemory(); err != nil {
		return err
	}

	// Stage 3: Execute
	if err := p.doExecute(); err != nil {
		return err
	}

	// Stage 2: Decode
	p.doDecode()

	// Stage 1: Fetch
	if err := p.doFetch(); err != nil {
		return err
	}

	if p.logger.IsTrace() {
		p.logger.Trace("tick",
			"cycle", p.stats.Cycles,
			"pc", p.pc,
			"if", p.ifid.Valid,
			"id", p.idex.Valid,
			"ex", p.exmem.Valid,
			"mem", p.memwb.Valid)
	}

	return nil
}

func (p *Pipeline) doMemory() error {
	if !p.exmem.Valid {
		return nil
	}

	result, err := p.memoryStage.Access(&p.exmem)
	if err != nil {
		return p.raise(p.exmem.PC, p.exmem.Inst, err)
	}

	for _, a := range result.Accesses {
		p.stats.DataAccesses++
		p.stats.DataLatency += a.Latency
		if a.Hit {
			p.stats.DataHits++
		} else {
			p.stats.DataMisses++
		}
	}

	p.memwb = MEMWBRegister{
		Valid:     true,
		PC:        p.exmem.PC,
		Inst:      p.exmem.Inst,
		ALUResult: p.exmem.ALUResult,
		MemData:   result.MemData,
		Rd:        p.exmem.Rd,
		RegWrite:  p.exmem.RegWrite,
		MemToReg:  p.exmem.MemToReg,
	}
	p.exmem.Clear()

	return nil
}

func (p *Pipeline) doExecute() error {
	if !p.idex.Valid {
		return nil
	}

	result, err := p.executeStage.Execute(&p.idex)
	if err != nil {
		return p.raise(p.idex.PC, p.idex.Inst, err)
	}

	p.exmem = EXMEMRegister{
		Valid:      true,
		PC:         p.idex.PC,
		Inst:       p.idex.Inst,
		ALUResult:  result.ALUResult,
		StoreValue: result.StoreValue,
		Rd:         p.idex.Rd,
		MemRead:    p.idex.MemRead,
		MemWrite:   p.idex.MemWrite,
		RegWrite:   p.idex.RegWrite,
		MemToReg:   p.idex.MemToReg,
		IsVault:    p.idex.IsVault,
	}

	switch {
	case result.BranchTaken:
		p.redirect(result.BranchTarget)
	case result.Halt:
		p.redirect(p.fetchBound())
		p.logger.Debug("ebreak", "pc", p.idex.PC)
	}

	p.idex.Clear()

	return nil
}

// redirect moves fetch to target and drops the instruction fetched from the
// sequential path.
func (p *Pipeline) redirect(target uint64) {
	p.pc = target

	if p.ifid.Valid {
		p.logger.Debug("flush", "pc", p.ifid.PC, "target", target)
		p.ifid.Clear()
		p.stats.Flushes++
	}
}

func (p *Pipeline) doDecode() {
	if !p.ifid.Valid {
		return
	}

	result := p.decodeStage.Decode(p.ifid.InstructionWord)

	p.idex = IDEXRegister{
		Valid:    true,
		PC:       p.ifid.PC,
		Inst:     result.Inst,
		Rd:       result.Rd,
		Rs1:      result.Rs1,
		Rs2:      result.Rs2,
		MemRead:  result.MemRead,
		MemWrite: result.MemWrite,
		RegWrite: result.RegWrite,
		MemToReg: result.MemToReg,
		IsBranch: result.IsBranch,
		IsVault:  result.IsVault,
	}
	p.ifid.Clear()
}

func (p *Pipeline) doFetch() error {
	if !p.canFetch() {
		return nil
	}

	word, err := p.fetchStage.Fetch(p.pc)
	if err != nil {
		return p.raise(p.pc, nil, err)
	}

	p.ifid = IFIDRegister{
		Valid:           true,
		PC:              p.pc,
		InstructionWord: word,
	}
	p.pc += 8
	p.stats.Fetched++

	return nil
}

func (p *Pipeline) raise(pc uint64, inst *insts.Instruction, err error) error {
	fault := &emu.Fault{PC: pc, Err: err}
	if inst != nil {
		fault.Op = inst.Op
	}

	p.fault = fault
	p.logger.Warn("pipeline fault", "pc", pc, "error", err)

	return fault
}

// Run ticks the pipeline until it drains. If it is still active after
// maxCycles cycles, Run returns a RunawayError and leaves the state as it
// is. A maxCycles of 0 selects DefaultMaxCycles.
func (p *Pipeline) Run(maxCycles uint64) error {
	if p.fault != nil {
		return p.fault
	}

	if maxCycles == 0 {
		maxCycles = DefaultMaxCycles
	}

	var cycles uint64
	for p.Active() {
		if cycles >= maxCycles {
			return &emu.RunawayError{Limit: maxCycles, Unit: "cycles", PC: p.pc}
		}

		if err := p.Tick(); err != nil {
			return err
		}
		cycles++
	}

	return nil
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still active, false if the pipeline drained or faulted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && p.Active(); i++ {
		if err := p.Tick(); err != nil {
			return false
		}
	}
	return p.Active()
}
