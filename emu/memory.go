package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultMemorySize is the memory size used when none is configured.
const DefaultMemorySize = 1024

// ErrInsufficientData is returned when a memory region or a byte buffer is
// too small for the requested access.
var ErrInsufficientData = errors.New("insufficient data")

// Memory is a flat, zero-initialised byte-addressable store. Multi-byte
// accesses are 8-byte little-endian.
type Memory struct {
	data []byte
}

// NewMemory creates a memory of size bytes. A non-positive size selects
// DefaultMemorySize.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{data: make([]byte, size)}
}

// Size returns the capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

func (m *Memory) check(addr, n uint64) error {
	size := m.Size()
	if addr > size || n > size-addr {
		return fmt.Errorf("%w: access [%#x, +%d) exceeds memory size %d",
			ErrInsufficientData, addr, n, size)
	}
	return nil
}

// Read64 reads an 8-byte little-endian word.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	if err := m.check(addr, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[addr:]), nil
}

// Write64 writes an 8-byte little-endian word.
func (m *Memory) Write64(addr, value uint64) error {
	if err := m.check(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[addr:], value)
	return nil
}

// ReadBytes returns a copy of n bytes starting at addr.
func (m *Memory) ReadBytes(addr, n uint64) ([]byte, error) {
	if err := m.check(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.data[addr:addr+n])
	return out, nil
}

// WriteBytes copies b into memory at addr.
func (m *Memory) WriteBytes(addr uint64, b []byte) error {
	if err := m.check(addr, uint64(len(b))); err != nil {
		return err
	}
	copy(m.data[addr:], b)
	return nil
}

// Clear zeroes n bytes starting at addr.
func (m *Memory) Clear(addr, n uint64) error {
	if err := m.check(addr, n); err != nil {
		return err
	}
	clear(m.data[addr : addr+n])
	return nil
}

// LoadWords writes words consecutively starting at addr.
func (m *Memory) LoadWords(addr uint64, words []uint64) error {
	if err := m.check(addr, uint64(len(words))*8); err != nil {
		return err
	}
	for i, w := range words {
		binary.LittleEndian.PutUint64(m.data[addr+uint64(i)*8:], w)
	}
	return nil
}

// Reset zeroes the whole memory.
func (m *Memory) Reset() {
	clear(m.data)
}
