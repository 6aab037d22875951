// Package vault implements the key vault: four private keys and four hash
// initialization words that never leave the vault in raw form.
package vault

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// NumSlots is the number of key slots and of init slots.
const NumSlots = 4

// SignatureSize is the encoded size of a Signature in bytes.
const SignatureSize = NumSlots * 8

// DefaultInits seed the mix when an init slot is unset.
var DefaultInits = Digest{
	0x0123456789ABCDEF,
	0x0F0E0D0C0B0A0908,
	0x0011223344556677,
	0x8899AABBCCDDEEFF,
}

// ErrShortSignature is returned when decoding fewer than SignatureSize bytes.
var ErrShortSignature = errors.New("signature shorter than 32 bytes")

// KeyIndexError reports a key slot outside the vault.
type KeyIndexError struct {
	Index int
}

func (e *KeyIndexError) Error() string {
	return fmt.Sprintf("key index %d out of range [0, %d]", e.Index, NumSlots-1)
}

// Signature is a digest masked with a vault key.
type Signature [4]uint64

// Bytes encodes the signature as four little-endian words.
func (s Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	for i, w := range s {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}

	return out
}

// SignatureFromBytes decodes the first SignatureSize bytes of b.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) < SignatureSize {
		return s, fmt.Errorf("%w: got %d bytes", ErrShortSignature, len(b))
	}

	for i := range s {
		s[i] = binary.LittleEndian.Uint64(b[i*8:])
	}

	return s, nil
}

// Vault stores keys and init words.
type Vault struct {
	keys  [NumSlots]uint64
	inits [NumSlots]uint64
}

// New creates a vault with every slot zero.
func New() *Vault {
	return &Vault{}
}

// WriteKey stores a key. An out-of-range index is ignored.
func (v *Vault) WriteKey(index int, value uint64) {
	if index >= 0 && index < NumSlots {
		v.keys[index] = value
	}
}

// WriteInit stores an init word. An out-of-range index is ignored.
func (v *Vault) WriteInit(index int, value uint64) {
	if index >= 0 && index < NumSlots {
		v.inits[index] = value
	}
}

func (v *Vault) key(index int) (uint64, error) {
	if index < 0 || index >= NumSlots {
		return 0, &KeyIndexError{Index: index}
	}

	return v.keys[index], nil
}

// Init returns the seed for SignBlocks. Unset slots fall back to
// DefaultInits.
func (v *Vault) Init() Digest {
	s := DefaultInits
	for i, w := range v.inits {
		if w != 0 {
			s[i] = w
		}
	}

	return s
}

// SignBlocks mixes four data blocks starting from the vault's init words
// and masks the result with the selected key.
func (v *Vault) SignBlocks(keyIndex int, blocks [4]uint64) ([4]uint64, error) {
	k, err := v.key(keyIndex)
	if err != nil {
		return [4]uint64{}, err
	}

	s := MixBlocks(v.Init(), blocks[:])

	return [4]uint64{s[0] ^ k, s[1] ^ k, s[2] ^ k, s[3] ^ k}, nil
}

// Sign masks a digest with the selected key.
func (v *Vault) Sign(keyIndex int, d Digest) (Signature, error) {
	k, err := v.key(keyIndex)
	if err != nil {
		return Signature{}, err
	}

	return Signature{d[0] ^ k, d[1] ^ k, d[2] ^ k, d[3] ^ k}, nil
}

// Invert removes the key mask from a signature, recovering the digest.
func (v *Vault) Invert(keyIndex int, s Signature) (Digest, error) {
	k, err := v.key(keyIndex)
	if err != nil {
		return Digest{}, err
	}

	return Digest{s[0] ^ k, s[1] ^ k, s[2] ^ k, s[3] ^ k}, nil
}

// Verify reports whether s is the signature of d under the selected key.
func (v *Vault) Verify(keyIndex int, s Signature, d Digest) (bool, error) {
	recovered, err := v.Invert(keyIndex, s)
	if err != nil {
		return false, err
	}

	return recovered == d, nil
}
