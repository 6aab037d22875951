package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/vaultsim/asm"
)

// ErrPartialWord is returned for binary programs whose length is not a
// multiple of 8.
var ErrPartialWord = errors.New("program length is not a whole number of words")

// ReadProgram reads a program. Files ending in .asm or .s are assembled;
// anything else is taken as little-endian instruction words.
func ReadProgram(path string) ([]uint64, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".asm", ".s":
		return asm.New().Assemble(bytes.NewReader(data))
	}

	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrPartialWord, path, len(data))
	}

	words := make([]uint64, len(data)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(data[i*8:])
	}

	return words, nil
}

// WriteProgram writes words as a little-endian binary program.
func WriteProgram(path string, words []uint64) error {
	data := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(data[i*8:], w)
	}

	return os.WriteFile(path, data, 0o644)
}
