// Package signing hashes documents with the ToyMDMA block mix and turns the
// digest into a vault signature appended to the document.
//
// The default backend runs the mix as a program on the pipeline model, one
// run per 8-byte block. The reference backend computes the same function in
// Go.
package signing

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/sarchlab/vaultsim/asm"
	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/timing/pipeline"
	"github.com/sarchlab/vaultsim/vault"
)

// BlockSize is the number of document bytes consumed per round.
const BlockSize = 8

// DefaultBlockCycles is the per-block cycle ceiling.
const DefaultBlockCycles = 256

// IV is the digest of the empty document.
var IV = vault.Digest{
	0x0123456789ABCDEF,
	0xFEDCBA9876543210,
	0x1111111111111111,
	0x2222222222222222,
}

//go:embed toymdma.asm
var programSource string

var program = mustAssemble(programSource)

func mustAssemble(src string) []uint64 {
	words, err := asm.New().AssembleString(src)
	if err != nil {
		panic(fmt.Sprintf("signing: embedded program: %v", err))
	}
	return words
}

// Program returns a copy of the mix program.
func Program() []uint64 {
	return append([]uint64(nil), program...)
}

// ProgramSource returns the assembly text of the mix program.
func ProgramSource() string {
	return programSource
}

// Registers used by the mix program.
const (
	regBlock = 1
	regA     = 2
)

// Backend selects how blocks are mixed.
type Backend int

const (
	// BackendPipeline runs the mix program on the pipeline model.
	BackendPipeline Backend = iota
	// BackendReference computes the mix directly.
	BackendReference
)

func (b Backend) String() string {
	switch b {
	case BackendPipeline:
		return "pipeline"
	case BackendReference:
		return "reference"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend maps a backend name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "pipeline":
		return BackendPipeline, nil
	case "reference", "ref":
		return BackendReference, nil
	}
	return 0, fmt.Errorf("unknown hash backend %q", name)
}

// BlockTrace records one round.
type BlockTrace struct {
	Index  int
	Data   uint64
	State  vault.Digest
	Cycles uint64
}

// Result is the outcome of hashing a document.
type Result struct {
	Digest    vault.Digest
	FinalHash uint64
	Blocks    []BlockTrace
}

// Cycles returns the total number of pipeline cycles spent.
func (r Result) Cycles() uint64 {
	var n uint64
	for _, b := range r.Blocks {
		n += b.Cycles
	}
	return n
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithBackend selects the backend.
func WithBackend(b Backend) Option {
	return func(h *Hasher) {
		h.backend = b
	}
}

// WithBlockCycles sets the per-block cycle ceiling. 0 keeps the default.
func WithBlockCycles(n uint64) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.blockCycles = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(h *Hasher) {
		h.logger = logger
	}
}

// Hasher computes document digests. A Hasher is not safe for concurrent
// use.
type Hasher struct {
	backend     Backend
	blockCycles uint64
	logger      hclog.Logger

	regFile *emu.RegFile
	pipe    *pipeline.Pipeline
}

// NewHasher creates a Hasher.
func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{
		backend:     BackendPipeline,
		blockCycles: DefaultBlockCycles,
		logger:      hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Backend returns the selected backend.
func (h *Hasher) Backend() Backend {
	return h.backend
}

// Blocks splits data into little-endian words, zero-padding the last one.
func Blocks(data []byte) []uint64 {
	blocks := make([]uint64, 0, (len(data)+BlockSize-1)/BlockSize)

	for i := 0; i < len(data); i += BlockSize {
		var buf [BlockSize]byte
		copy(buf[:], data[i:])
		blocks = append(blocks, binary.LittleEndian.Uint64(buf[:]))
	}

	return blocks
}

// Reference hashes data with the Go implementation of the mix.
func Reference(data []byte) vault.Digest {
	return vault.MixBlocks(IV, Blocks(data))
}

// Hash hashes data.
func (h *Hasher) Hash(data []byte) (Result, error) {
	state := IV
	blocks := Blocks(data)
	result := Result{Blocks: make([]BlockTrace, 0, len(blocks))}

	for i, block := range blocks {
		var (
			cycles uint64
			err    error
		)

		switch h.backend {
		case BackendReference:
			state = vault.MixBlock(block, state)
		default:
			state, cycles, err = h.runBlock(block, state)
			if err != nil {
				return Result{}, fmt.Errorf("block %d: %w", i, err)
			}
		}

		h.logger.Debug("block mixed", "index", i, "data", hclog.Fmt("%#016x", block), "cycles", cycles)
		result.Blocks = append(result.Blocks, BlockTrace{
			Index:  i,
			Data:   block,
			State:  state,
			Cycles: cycles,
		})
	}

	result.Digest = state
	result.FinalHash = state.Fold()

	return result, nil
}

// HashFile hashes the contents of the file at path.
func (h *Hasher) HashFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	return h.Hash(data)
}

func (h *Hasher) machine() (*pipeline.Pipeline, error) {
	if h.pipe != nil {
		return h.pipe, nil
	}

	h.regFile = &emu.RegFile{}
	memory := emu.NewMemory(len(program) * 8)
	pipe := pipeline.NewPipeline(h.regFile, memory, pipeline.WithLogger(h.logger.Named("pipeline")))
	if err := pipe.LoadProgram(program); err != nil {
		return nil, err
	}

	h.pipe = pipe

	return pipe, nil
}

func (h *Hasher) runBlock(block uint64, state vault.Digest) (vault.Digest, uint64, error) {
	pipe, err := h.machine()
	if err != nil {
		return vault.Digest{}, 0, err
	}

	pipe.Reset()
	h.regFile.WriteReg(regBlock, block)
	for i, w := range state {
		h.regFile.WriteReg(uint8(regA+i), w)
	}

	if err := pipe.Run(h.blockCycles); err != nil {
		return vault.Digest{}, pipe.Stats().Cycles, err
	}

	var out vault.Digest
	for i := range out {
		out[i] = h.regFile.ReadReg(uint8(regA + i))
	}

	return out, pipe.Stats().Cycles, nil
}
