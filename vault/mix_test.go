package vault_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/insts"
	"github.com/sarchlab/vaultsim/vault"
)

var _ = Describe("MixBlock", func() {
	iv := vault.Digest{0x0123456789ABCDEF, 0xFEDCBA9876543210, 0x1111111111111111, 0x2222222222222222}

	It("should keep the all-zero state fixed under a zero block", func() {
		Expect(vault.MixBlock(0, vault.Digest{})).To(Equal(vault.Digest{}))
	})

	It("should match known values", func() {
		Expect(vault.MixBlock(1, iv)).To(Equal(vault.Digest{
			0xb4445324f9813c67,
			0xa989876765454bab,
			0xaf2eba511a4b5e90,
			0xfa688d4aa406e363,
		}))
	})

	It("should use a prime that fits the modi immediate", func() {
		word := insts.Encode(insts.Fields{Imm: vault.Prime})
		Expect(insts.Decode(word).Imm).To(Equal(vault.Prime))

		word = insts.Encode(insts.Fields{Imm: 0xFFFFFFFB})
		Expect(insts.Decode(word).Imm).NotTo(Equal(uint64(0xFFFFFFFB)))
	})

	It("should chain blocks in order", func() {
		chained := vault.MixBlock(2, vault.MixBlock(1, iv))
		Expect(vault.MixBlocks(iv, []uint64{1, 2})).To(Equal(chained))
		Expect(vault.MixBlocks(iv, []uint64{2, 1})).NotTo(Equal(chained))
	})

	It("should return the init unchanged for no blocks", func() {
		Expect(vault.MixBlocks(iv, nil)).To(Equal(iv))
	})

	It("should fold with XOR", func() {
		Expect(iv.Fold()).To(Equal(uint64(0xCCCCCCCCCCCCCCCC)))
	})
})
