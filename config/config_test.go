package config_test

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/config"
	"github.com/sarchlab/vaultsim/vault"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	It("should load defaults without a file", func() {
		c, err := config.Load("")

		Expect(err).NotTo(HaveOccurred())
		Expect(c.MemorySize).To(Equal(1024))
		Expect(c.MaxCycles).To(Equal(uint64(10000)))
		Expect(c.BlockCycles).To(Equal(uint64(256)))
		Expect(c.Level()).To(Equal(hclog.Info))
		Expect(c.DataCache.Enabled).To(BeFalse())
	})

	It("should read YAML files", func() {
		path := filepath.Join(tempDir, "vaultsim.yaml")
		Expect(os.WriteFile(path, []byte(`
memory_size: 4096
max_cycles: 500
log_level: debug
vault:
  keys: ["0xA5A5A5A5A5A5A5A5", "1234"]
  key_index: 1
data_cache:
  enabled: true
  size: 512
  associativity: 4
  block_size: 16
`), 0o644)).To(Succeed())

		c, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.MemorySize).To(Equal(4096))
		Expect(c.MaxCycles).To(Equal(uint64(500)))
		Expect(c.BlockCycles).To(Equal(uint64(256)))
		Expect(c.Level()).To(Equal(hclog.Debug))
		Expect(c.Vault.Keys).To(Equal([]string{"0xA5A5A5A5A5A5A5A5", "1234"}))
		Expect(c.Vault.KeyIndex).To(Equal(1))
		Expect(c.Cache().Associativity).To(Equal(4))
		Expect(c.Cache().BlockSize).To(Equal(16))
	})

	It("should let the environment override the file", func() {
		GinkgoT().Setenv("VAULTSIM_MAX_CYCLES", "77")
		GinkgoT().Setenv("VAULTSIM_VAULT_KEY_INDEX", "3")

		c, err := config.Load("")

		Expect(err).NotTo(HaveOccurred())
		Expect(c.MaxCycles).To(Equal(uint64(77)))
		Expect(c.Vault.KeyIndex).To(Equal(3))
	})

	It("should fail on a missing file", func() {
		_, err := config.Load(filepath.Join(tempDir, "none.yaml"))

		Expect(err).To(HaveOccurred())
	})

	It("should round-trip through YAML", func() {
		c := config.Default()
		c.MemorySize = 2048
		c.LogFile = "/tmp/vaultsim.log"
		c.Vault.Keys = []string{"ff", "0x10"}
		c.Vault.Inits = []string{"1", "2", "3", "4"}
		c.DataCache.Enabled = true
		path := filepath.Join(tempDir, "out.yaml")

		Expect(c.Save(path)).To(Succeed())
		loaded, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(c))
	})

	It("should clone deeply", func() {
		c := config.Default()
		c.Vault.Keys = []string{"1"}

		clone := c.Clone()
		clone.Vault.Keys[0] = "2"

		Expect(c.Vault.Keys[0]).To(Equal("1"))
	})

	DescribeTable("Validate",
		func(mutate func(*config.Config)) {
			c := config.Default()
			mutate(c)

			Expect(c.Validate()).To(MatchError(config.ErrInvalid))
		},
		Entry("zero memory", func(c *config.Config) { c.MemorySize = 0 }),
		Entry("unaligned memory", func(c *config.Config) { c.MemorySize = 1001 }),
		Entry("bad level", func(c *config.Config) { c.LogLevel = "loud" }),
		Entry("bad key index", func(c *config.Config) { c.Vault.KeyIndex = 4 }),
		Entry("bad key", func(c *config.Config) { c.Vault.Keys = []string{"xyz"} }),
		Entry("too many inits", func(c *config.Config) { c.Vault.Inits = []string{"1", "2", "3", "4", "5"} }),
		Entry("bad cache", func(c *config.Config) {
			c.DataCache.Enabled = true
			c.DataCache.BlockSize = 12
		}),
	)

	It("should build a vault", func() {
		c := config.Default()
		c.Vault.Keys = []string{"0", "0xA5A5A5A5A5A5A5A5"}

		v, err := c.NewVault()
		Expect(err).NotTo(HaveOccurred())

		sig, err := v.Sign(1, vault.Digest{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sig[0]).To(Equal(uint64(0xA5A5A5A5A5A5A5A5)))
		Expect(v.Init()).To(Equal(vault.DefaultInits))
	})

	It("should parse hex words", func() {
		Expect(config.ParseHex("0xFF")).To(Equal(uint64(0xFF)))
		Expect(config.ParseHex("dead_beef")).To(Equal(uint64(0xDEADBEEF)))

		_, err := config.ParseHex("0x1FFFFFFFFFFFFFFFF")
		Expect(err).To(HaveOccurred())
	})
})
