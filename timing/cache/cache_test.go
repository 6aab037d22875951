package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaultsim/timing/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// 2 sets, 2 ways, 32B lines
		config := cache.Config{
			Size:          128,
			Associativity: 2,
			BlockSize:     32,
			HitLatency:    1,
			MissLatency:   10,
		}
		Expect(config.Validate()).To(Succeed())
		c = cache.New(config)
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x100)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			c.Read(0x100)

			result := c.Read(0x100)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(c.Stats().HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should hit on different words in same cache line", func() {
			c.Read(0x100)

			result := c.Read(0x118)
			Expect(result.Hit).To(BeTrue())
			Expect(c.Contains(0x108)).To(BeTrue())
		})
	})

	Describe("Write operations", func() {
		It("should allocate on write miss", func() {
			result := c.Write(0x200)
			Expect(result.Hit).To(BeFalse())
			Expect(c.Contains(0x200)).To(BeTrue())
			Expect(c.Stats().Writes).To(Equal(uint64(1)))
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used block of a set", func() {
			// 0x000, 0x040 and 0x080 map to set 0.
			c.Write(0x000)
			c.Read(0x040)
			c.Read(0x000)

			result := c.Read(0x080)
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint64(0x040)))
			Expect(c.Contains(0x000)).To(BeTrue())
			Expect(c.Contains(0x040)).To(BeFalse())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should count a writeback when a dirty block is evicted", func() {
			c.Write(0x000)
			c.Read(0x040)
			c.Read(0x080)

			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush and invalidate", func() {
		It("should write back dirty blocks on flush", func() {
			c.Write(0x000)
			c.Write(0x020)
			c.Read(0x040)

			c.Flush()
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
			Expect(c.Contains(0x000)).To(BeFalse())
		})

		It("should invalidate a single line", func() {
			c.Read(0x000)
			c.Invalidate(0x010)
			Expect(c.Contains(0x000)).To(BeFalse())
		})

		It("should reset statistics and contents", func() {
			c.Read(0x000)
			c.Reset()
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			Expect(c.Contains(0x000)).To(BeFalse())
		})
	})

	Describe("Config", func() {
		It("should accept the default", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
		})

		DescribeTable("should reject bad geometry",
			func(cfg cache.Config) {
				Expect(cfg.Validate()).To(MatchError(cache.ErrBadGeometry))
			},
			Entry("zero size", cache.Config{Size: 0, Associativity: 1, BlockSize: 8}),
			Entry("odd block", cache.Config{Size: 120, Associativity: 1, BlockSize: 12}),
			Entry("partial set", cache.Config{Size: 100, Associativity: 2, BlockSize: 32}),
		)
	})
})
