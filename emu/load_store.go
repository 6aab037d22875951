package emu

import (
	"fmt"

	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/vault"
)

// signWords is the number of words vsign reads and writes.
const signWords = 4

// MemoryUnit performs data-memory and vault accesses.
type MemoryUnit struct {
	memory *Memory
	vault  *vault.Vault
}

// NewMemoryUnit creates a MemoryUnit over memory. v may be nil.
func NewMemoryUnit(memory *Memory, v *vault.Vault) *MemoryUnit {
	return &MemoryUnit{
		memory: memory,
		vault:  v,
	}
}

// SetVault attaches or detaches a vault.
func (u *MemoryUnit) SetVault(v *vault.Vault) {
	u.vault = v
}

// Vault returns the attached vault, if any.
func (u *MemoryUnit) Vault() *vault.Vault {
	return u.vault
}

// Load reads the word at addr.
func (u *MemoryUnit) Load(addr uint64) (uint64, error) {
	return u.memory.Read64(addr)
}

// Store writes value at addr.
func (u *MemoryUnit) Store(addr, value uint64) error {
	return u.memory.Write64(addr, value)
}

// VaultWrite forwards a vwr or vinit to the vault.
func (u *MemoryUnit) VaultWrite(op insts.Op, index, value uint64) error {
	if u.vault == nil {
		return ErrNoVault
	}

	// Out-of-range indices are ignored by the vault; clamp huge immediates
	// so they stay out of range after the int conversion.
	idx := vault.NumSlots
	if index < vault.NumSlots {
		idx = int(index)
	}

	switch op {
	case insts.OpVWR:
		u.vault.WriteKey(idx, value)
	case insts.OpVINIT:
		u.vault.WriteInit(idx, value)
	default:
		return fmt.Errorf("%w: %v is not a vault write", ErrIllegalInstruction, op)
	}

	return nil
}

// VaultSign reads four words at addr, signs them with the given key slot
// and writes the result to the four words that follow.
func (u *MemoryUnit) VaultSign(key uint8, addr uint64) error {
	if u.vault == nil {
		return ErrNoVault
	}

	var blocks [signWords]uint64
	for i := range blocks {
		w, err := u.memory.Read64(addr + uint64(i)*8)
		if err != nil {
			return err
		}
		blocks[i] = w
	}

	// Check the output range before touching the vault.
	if err := u.memory.check(addr+signWords*8, signWords*8); err != nil {
		return err
	}

	out, err := u.vault.SignBlocks(int(key), blocks)
	if err != nil {
		return err
	}

	return u.memory.LoadWords(addr+signWords*8, out[:])
}
