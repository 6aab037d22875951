package loader_test

import (
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/loader"
	"github.com/sarchlab/vaultsim/vault"
)

var _ = Describe("FileLoader", func() {
	var (
		tempDir string
		memory  *emu.Memory
		l       *loader.FileLoader
	)

	write := func(name string, data []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "loader-test")
		Expect(err).NotTo(HaveOccurred())

		memory = emu.NewMemory(128)
		l = loader.NewFileLoader(memory)
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("LoadFile", func() {
		It("should place files one after another", func() {
			a := write("a", []byte("abc"))
			b := write("b", []byte("defghijk"))

			ra, err := l.LoadFile(a)
			Expect(err).NotTo(HaveOccurred())
			rb, err := l.LoadFile(b)
			Expect(err).NotTo(HaveOccurred())

			Expect(ra).To(Equal(loader.Region{Addr: 0, Size: 3}))
			Expect(rb).To(Equal(loader.Region{Addr: 8, Size: 8}))
			Expect(l.Next()).To(Equal(uint64(16)))
			Expect(memory.ReadBytes(0, 3)).To(Equal([]byte("abc")))
			Expect(memory.ReadBytes(8, 8)).To(Equal([]byte("defghijk")))
		})

		It("should load at an explicit address", func() {
			path := write("a", []byte{0x34, 0x12, 0, 0, 0, 0, 0, 0})

			region, err := l.LoadFileAt(path, 0x40)

			Expect(err).NotTo(HaveOccurred())
			Expect(region.Addr).To(Equal(uint64(0x40)))
			Expect(memory.Read64(0x40)).To(Equal(uint64(0x1234)))
			Expect(l.Next()).To(Equal(uint64(0x48)))
		})

		It("should report missing files", func() {
			_, err := l.LoadFile(filepath.Join(tempDir, "missing"))

			Expect(err).To(MatchError(loader.ErrNotFound))
			Expect(err).To(MatchError(fs.ErrNotExist))
		})

		It("should report files that do not fit", func() {
			path := write("big", make([]byte, 100))

			_, err := l.LoadFileAt(path, 64)

			Expect(err).To(MatchError(emu.ErrInsufficientData))
			Expect(l.Next()).To(BeZero())
		})
	})

	Describe("LoadBlocks", func() {
		It("should zero-pad the last block", func() {
			Expect(memory.WriteBytes(0, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})).To(Succeed())
			path := write("doc", []byte("hello"))

			region, err := l.LoadBlocks(path, 8)

			Expect(err).NotTo(HaveOccurred())
			Expect(region).To(Equal(loader.Region{Addr: 0, Size: 8, Padded: 3}))
			Expect(memory.ReadBytes(0, 10)).To(Equal([]byte{'h', 'e', 'l', 'l', 'o', 0, 0, 0, 0xFF, 0xFF}))
		})

		It("should not pad whole blocks", func() {
			path := write("doc", []byte("abcdefgh"))

			region, err := l.LoadBlocksAt(path, 16, 8)

			Expect(err).NotTo(HaveOccurred())
			Expect(region.Padded).To(BeZero())
			Expect(region.End()).To(Equal(uint64(24)))
		})

		It("should count padding against memory", func() {
			path := write("doc", make([]byte, 121))

			_, err := l.LoadBlocks(path, 48)

			Expect(err).To(MatchError(emu.ErrInsufficientData))
		})
	})

	Describe("LoadSigned", func() {
		It("should split content and signature", func() {
			sig := vault.Signature{1, 2, 3, 4}
			path := write("doc.signed", append([]byte("hi"), sig.Bytes()...))

			region, err := l.LoadSigned(path, 8)

			Expect(err).NotTo(HaveOccurred())
			Expect(region.Region).To(Equal(loader.Region{Addr: 8, Size: 34}))
			Expect(region.Content).To(Equal(loader.Region{Addr: 8, Size: 2}))
			Expect(region.Signature).To(Equal(loader.Region{Addr: 10, Size: 32}))
			Expect(region.Sig).To(Equal(sig))
		})

		It("should reject short artifacts", func() {
			path := write("short", make([]byte, 31))

			_, err := l.LoadSigned(path, 0)

			Expect(err).To(MatchError(emu.ErrInsufficientData))
		})
	})

	Describe("SaveRange", func() {
		It("should write memory to a file", func() {
			Expect(memory.WriteBytes(4, []byte("vault"))).To(Succeed())
			path := filepath.Join(tempDir, "out")

			Expect(l.SaveRange(4, 5, path)).To(Succeed())

			Expect(os.ReadFile(path)).To(Equal([]byte("vault")))
		})

		It("should fail outside memory", func() {
			err := l.SaveRange(120, 16, filepath.Join(tempDir, "out"))

			Expect(err).To(MatchError(emu.ErrInsufficientData))
		})
	})

	Describe("ClearRange and Reset", func() {
		It("should zero memory and rewind", func() {
			path := write("a", []byte("abcdefgh"))
			_, err := l.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(l.ClearRange(0, 8)).To(Succeed())
			l.Reset()

			Expect(memory.Read64(0)).To(BeZero())
			Expect(l.Next()).To(BeZero())
		})

		It("should seek", func() {
			l.Seek(0x20)
			path := write("a", []byte("x"))

			region, err := l.LoadFile(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(region.Addr).To(Equal(uint64(0x20)))
		})
	})

	Describe("Info", func() {
		It("should describe a file", func() {
			path := write("a", make([]byte, 17))

			info, err := loader.Info(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size).To(Equal(int64(17)))
			Expect(info.Blocks).To(Equal(3))
			Expect(info.Path).To(Equal(path))
		})

		It("should report missing files", func() {
			_, err := loader.Info(filepath.Join(tempDir, "missing"))

			Expect(err).To(MatchError(loader.ErrNotFound))
		})
	})
})
