package vault

import "math/bits"

// ToyMDMA constants.
const (
	Golden uint64 = 0x9E3779B97F4A7C15

	// Prime is 2^31-1 rather than the 32-bit 0xFFFFFFFB so that the mix
	// program can reduce with one modi, whose immediate is 31 bits wide.
	// Signatures therefore differ from a mix using 0xFFFFFFFB.
	Prime uint64 = 0x7FFFFFFF
)

// Digest is the (A, B, C, D) accumulator of the block mix.
type Digest [4]uint64

// Fold collapses the digest to one word.
func (d Digest) Fold() uint64 {
	return d[0] ^ d[1] ^ d[2] ^ d[3]
}

// MixBlock runs one round of the ToyMDMA mix over a 64-bit block.
func MixBlock(block uint64, s Digest) Digest {
	a, b, c, d := s[0], s[1], s[2], s[3]

	f := (a & b) | (^a & c)
	g := (b & c) | (^b & d)
	h := a ^ b ^ c ^ d
	m := block * Golden

	na := bits.RotateLeft64(a+f+m, 7) + b
	nb := bits.RotateLeft64(b+g+block, 11) + c*3
	nc := bits.RotateLeft64(c+h+m, 17) + d%Prime
	nd := bits.RotateLeft64(d+na+block, 19) ^ f*5

	return Digest{na, nb, nc, nd}
}

// MixBlocks folds blocks into init in order.
func MixBlocks(init Digest, blocks []uint64) Digest {
	s := init
	for _, b := range blocks {
		s = MixBlock(b, s)
	}

	return s
}
