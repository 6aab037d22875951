// Package loader moves files between the host and simulated memory.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/vault"
)

// ErrNotFound is returned for missing files. It also matches fs.ErrNotExist.
var ErrNotFound = errors.New("file not found")

// Region is a range of memory a file was placed in.
type Region struct {
	// Addr is the first byte of the region.
	Addr uint64
	// Size is the number of bytes written, padding included.
	Size uint64
	// Padded is the number of zero bytes appended to fill the last block.
	Padded uint64
}

// End returns the address one past the region.
func (r Region) End() uint64 {
	return r.Addr + r.Size
}

// SignedRegion describes a signed artifact placed in memory.
type SignedRegion struct {
	Region
	Content   Region
	Signature Region
	Sig       vault.Signature
}

// FileInfo describes a file on the host.
type FileInfo struct {
	Path    string
	Size    int64
	Blocks  int
	ModTime time.Time
}

// FileLoader places files in memory. Loads without an explicit address go
// to the next free address, which advances past every load.
type FileLoader struct {
	memory *emu.Memory
	next   uint64
}

// NewFileLoader creates a FileLoader over memory.
func NewFileLoader(memory *emu.Memory) *FileLoader {
	return &FileLoader{memory: memory}
}

// Next returns the address the next LoadFile or LoadBlocks will use.
func (l *FileLoader) Next() uint64 {
	return l.next
}

// Seek sets the next free address.
func (l *FileLoader) Seek(addr uint64) {
	l.next = addr
}

// Reset rewinds the next free address to 0. Memory is left untouched.
func (l *FileLoader) Reset() {
	l.next = 0
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return data, err
}

// LoadFile places the file at the next free address.
func (l *FileLoader) LoadFile(path string) (Region, error) {
	return l.LoadFileAt(path, l.next)
}

// LoadFileAt places the file at addr.
func (l *FileLoader) LoadFileAt(path string, addr uint64) (Region, error) {
	return l.LoadBlocksAt(path, addr, 1)
}

// LoadBlocks places the file at the next free address, zero-padding it to
// a multiple of blockSize.
func (l *FileLoader) LoadBlocks(path string, blockSize int) (Region, error) {
	return l.LoadBlocksAt(path, l.next, blockSize)
}

// LoadBlocksAt places the file at addr, zero-padding it to a multiple of
// blockSize. A non-positive blockSize means 8.
func (l *FileLoader) LoadBlocksAt(path string, addr uint64, blockSize int) (Region, error) {
	if blockSize <= 0 {
		blockSize = 8
	}

	data, err := readFile(path)
	if err != nil {
		return Region{}, err
	}

	size := uint64(len(data))
	padded := (uint64(blockSize) - size%uint64(blockSize)) % uint64(blockSize)

	region := Region{Addr: addr, Size: size + padded, Padded: padded}
	if err := l.place(region, data); err != nil {
		return Region{}, fmt.Errorf("loading %s: %w", path, err)
	}

	return region, nil
}

func (l *FileLoader) place(region Region, data []byte) error {
	if region.Addr > l.memory.Size() || region.Size > l.memory.Size()-region.Addr {
		return fmt.Errorf("%w: %d bytes at %#x do not fit in %d bytes of memory",
			emu.ErrInsufficientData, region.Size, region.Addr, l.memory.Size())
	}

	if err := l.memory.WriteBytes(region.Addr, data); err != nil {
		return err
	}

	if region.Padded > 0 {
		if err := l.memory.Clear(region.Addr+uint64(len(data)), region.Padded); err != nil {
			return err
		}
	}

	l.next = align(region.End())

	return nil
}

// align rounds addr up to the next word.
func align(addr uint64) uint64 {
	return (addr + 7) &^ 7
}

// LoadSigned places a signed artifact at addr and reports where the
// document and the signature ended up.
func (l *FileLoader) LoadSigned(path string, addr uint64) (SignedRegion, error) {
	data, err := readFile(path)
	if err != nil {
		return SignedRegion{}, err
	}

	if len(data) < vault.SignatureSize {
		return SignedRegion{}, fmt.Errorf("%w: %s is %d bytes, shorter than a signature",
			emu.ErrInsufficientData, path, len(data))
	}

	region := Region{Addr: addr, Size: uint64(len(data))}
	if err := l.place(region, data); err != nil {
		return SignedRegion{}, fmt.Errorf("loading %s: %w", path, err)
	}

	content := uint64(len(data) - vault.SignatureSize)
	sig, err := vault.SignatureFromBytes(data[content:])
	if err != nil {
		return SignedRegion{}, err
	}

	return SignedRegion{
		Region:    region,
		Content:   Region{Addr: addr, Size: content},
		Signature: Region{Addr: addr + content, Size: vault.SignatureSize},
		Sig:       sig,
	}, nil
}

// SaveRange writes size bytes of memory starting at addr to path.
func (l *FileLoader) SaveRange(addr, size uint64, path string) error {
	data, err := l.memory.ReadBytes(addr, size)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ClearRange zeroes size bytes of memory starting at addr.
func (l *FileLoader) ClearRange(addr, size uint64) error {
	return l.memory.Clear(addr, size)
}

// Info describes the file at path.
func Info(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Path:    path,
		Size:    st.Size(),
		Blocks:  int((st.Size() + 7) / 8),
		ModTime: st.ModTime(),
	}, nil
}
