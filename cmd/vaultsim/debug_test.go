package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/config"
	"github.com/sarchlab/vaultsim/timing/core"
)

var _ = Describe("console", func() {
	var (
		tempDir string
		out     *bytes.Buffer
		con     *console
	)

	run := func(line string) string {
		out.Reset()
		con.execute(line)
		return out.String()
	}

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}

		c, err := core.FromConfig(config.Default(), hclog.NewNullLogger())
		Expect(err).NotTo(HaveOccurred())
		con = newConsole(c, out)

		src := filepath.Join(tempDir, "sum.asm")
		Expect(os.WriteFile(src, []byte(sumProgram), 0o644)).To(Succeed())
		Expect(run("program " + src)).To(Equal("loaded 4 words\n"))
	})

	It("should step and show the latches", func() {
		text := run("step 2")

		Expect(text).To(HavePrefix("cycle 2, pc 0x10\n"))
		Expect(text).To(ContainSubstring("IF/ID   0x0008  addi x2, x0, 2"))
		Expect(text).To(ContainSubstring("ID/EX   0x0000  addi x1, x0, 40"))
	})

	It("should run to completion and show registers", func() {
		Expect(run("run")).To(HavePrefix("cycle 8,"))

		regs := run("regs")
		Expect(regs).To(ContainSubstring("x1  = 0x0000000000000028  40"))
		Expect(regs).To(ContainSubstring("x3  = 0x000000000000002a  42"))

		Expect(run("stats")).To(HavePrefix("cycles=8 instructions=4"))
	})

	It("should set registers", func() {
		Expect(run("set x5 7")).To(BeEmpty())
		Expect(run("regs")).To(ContainSubstring("x5  = 0x0000000000000007  7"))
	})

	It("should clear state on reset", func() {
		run("run")
		Expect(run("reset")).To(HavePrefix("cycle 0, pc 0x0\n"))
		Expect(run("regs")).NotTo(ContainSubstring("x3 "))

		Expect(run("run")).To(HavePrefix("cycle 8,"))
	})

	It("should place data and save it back", func() {
		data := filepath.Join(tempDir, "data.bin")
		Expect(os.WriteFile(data, []byte("vaultsim"), 0o644)).To(Succeed())

		Expect(run("load " + data + " 0x200")).To(Equal("8 bytes at 0x200 (0 padding)\n"))
		Expect(run("mem 0x200 1")).To(Equal("0x0200: 6d6973746c756176\n"))

		saved := filepath.Join(tempDir, "saved.bin")
		Expect(run("save 0x200 8 " + saved)).To(BeEmpty())

		content, err := os.ReadFile(saved)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("vaultsim"))
	})

	It("should report errors and usage", func() {
		Expect(run("frob")).To(Equal("unknown command \"frob\"\n"))
		Expect(run("set x5")).To(Equal("usage: set xN VALUE\n"))
		Expect(run("step many")).To(Equal("usage: step [N]\n"))
		Expect(run("mem 0x10000 1")).To(HavePrefix("error: "))
		Expect(run("program /no/such/file.asm")).To(HavePrefix("error: "))
	})

	It("should list commands", func() {
		text := run("help")

		Expect(text).To(ContainSubstring("program PATH"))
		Expect(text).To(ContainSubstring("leave the console"))
	})

	It("should keep history and quit", func() {
		run("regs")
		run("  ")
		Expect(con.quit).To(BeFalse())

		run("exit")

		Expect(con.quit).To(BeTrue())
		Expect(con.history).To(HaveLen(3))
	})
})
