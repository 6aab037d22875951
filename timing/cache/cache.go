// Package cache models a set-associative data cache using Akita cache
// components. The model tracks tags, dirty bits and LRU order only. Data
// always lives in emu.Memory, so enabling the model never changes program
// results; it only produces hit, miss and latency figures.
package cache

import (
	"errors"
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultConfig returns a small 2-way cache sized for the default 1 KiB
// memory: 256 B, 32 B lines.
func DefaultConfig() Config {
	return Config{
		Size:          256,
		Associativity: 2,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// ErrBadGeometry is returned by Validate for impossible cache shapes.
var ErrBadGeometry = errors.New("invalid cache geometry")

// Validate checks that the geometry describes at least one full set.
func (c Config) Validate() error {
	switch {
	case c.Size <= 0, c.Associativity <= 0, c.BlockSize <= 0:
		return fmt.Errorf("%w: size, associativity and block size must be positive", ErrBadGeometry)
	case c.BlockSize%8 != 0:
		return fmt.Errorf("%w: block size %d is not a multiple of the 8-byte word", ErrBadGeometry, c.BlockSize)
	case c.Size%(c.Associativity*c.BlockSize) != 0:
		return fmt.Errorf("%w: size %d is not a multiple of associativity*block size", ErrBadGeometry, c.Size)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns hits over accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache represents an L1 data cache using Akita cache components.
type Cache struct {
	// Configuration
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Statistics
	stats Statistics
}

// New creates a new cache with the given configuration. The configuration
// must pass Validate.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Read records a read of the word at addr.
func (c *Cache) Read(addr uint64) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write records a write of the word at addr.
// Uses write-allocate policy: a miss allocates the block.
func (c *Cache) Write(addr uint64) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

func (c *Cache) access(addr uint64, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		if isWrite {
			block.IsDirty = true
		}

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++

	return c.handleMiss(blockAddr, isWrite)
}

// handleMiss allocates a block for blockAddr, evicting the LRU victim.
func (c *Cache) handleMiss(blockAddr uint64, isWrite bool) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores block-aligned address

		if victim.IsDirty {
			c.stats.Writebacks++
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite

	c.directory.Visit(victim) // Update LRU

	return result
}

// Contains reports whether the block holding addr is cached.
func (c *Cache) Contains(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush counts a writeback for every dirty block and invalidates all
// blocks.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
