package loader_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/asm"
	"github.com/sarchlab/vaultsim/loader"
)

var _ = Describe("Programs", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	It("should assemble source files", func() {
		path := filepath.Join(tempDir, "prog.asm")
		Expect(os.WriteFile(path, []byte("addi x1, x0, 1\nnop\n"), 0o644)).To(Succeed())

		words, err := loader.ReadProgram(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(words).To(HaveLen(2))
		Expect(asm.Disassemble(words[0])).To(Equal("addi x1, x0, 1"))
	})

	It("should surface syntax errors", func() {
		path := filepath.Join(tempDir, "bad.s")
		Expect(os.WriteFile(path, []byte("nop\nfrob\n"), 0o644)).To(Succeed())

		_, err := loader.ReadProgram(path)

		var se *asm.SyntaxError
		Expect(err).To(BeAssignableToTypeOf(se))
		Expect(err.(*asm.SyntaxError).Line).To(Equal(2))
	})

	It("should round-trip binary programs", func() {
		path := filepath.Join(tempDir, "prog.bin")
		words := []uint64{0xC300000000000000, 0xDEADBEEF, 1}

		Expect(loader.WriteProgram(path, words)).To(Succeed())

		Expect(loader.ReadProgram(path)).To(Equal(words))
	})

	It("should reject partial words", func() {
		path := filepath.Join(tempDir, "prog.bin")
		Expect(os.WriteFile(path, make([]byte, 12), 0o644)).To(Succeed())

		_, err := loader.ReadProgram(path)

		Expect(err).To(MatchError(loader.ErrPartialWord))
	})

	It("should report missing programs", func() {
		_, err := loader.ReadProgram(filepath.Join(tempDir, "none.asm"))

		Expect(err).To(MatchError(loader.ErrNotFound))
	})
})
