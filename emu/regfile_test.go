package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/insts"
)

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	It("should hard-wire register 0 to zero", func() {
		regFile.WriteReg(0, 42)
		Expect(regFile.ReadReg(0)).To(Equal(uint64(0)))
	})

	It("should read back written registers", func() {
		regFile.WriteReg(31, 0xFFFF)
		Expect(regFile.ReadReg(31)).To(Equal(uint64(0xFFFF)))
	})

	It("should ignore out-of-range raw indices", func() {
		regFile.WriteReg(40, 1)
		Expect(regFile.ReadReg(40)).To(BeZero())
	})

	It("should validate indices on Get and Set", func() {
		Expect(regFile.Set(5, 7)).To(Succeed())
		v, err := regFile.Get(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(7)))

		var rangeErr *insts.OperandRangeError
		Expect(regFile.Set(32, 1)).To(BeAssignableToTypeOf(rangeErr))
		_, err = regFile.Get(-1)
		Expect(err).To(BeAssignableToTypeOf(rangeErr))
	})

	It("should reset every register", func() {
		regFile.WriteReg(3, 9)
		regFile.Reset()
		Expect(regFile.ReadReg(3)).To(BeZero())
	})
})
