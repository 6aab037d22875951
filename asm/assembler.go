// Package asm assembles line-oriented source text into instruction words.
//
// One instruction per line. '#' starts a comment, commas are whitespace and
// blank lines are skipped. Registers are written x0..x31. Immediates accept
// decimal, 0x, 0b and 0o literals of any width and are masked to their
// field. A $(expr) token is evaluated as a Starlark expression at assembly
// time, and ".word <imm>" emits a raw data word. There are no labels: jal
// and beq take byte displacements relative to their own address.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sarchlab/vaultsim/insts"
)

// Assembler is a single pass assembler. It keeps no state between calls.
type Assembler struct{}

// New returns an Assembler.
func New() *Assembler {
	return &Assembler{}
}

var (
	reRegister = regexp.MustCompile(`^x([0-9]+)$`)
	reIndexed  = regexp.MustCompile(`^([^()]*)\(([^()]*)\)$`)
	reParen    = regexp.MustCompile(`\$\((?:[^()]|\([^()]*\))*\)`)

	mask64 = new(big.Int).SetUint64(^uint64(0))
)

// AssembleString assembles src.
func (a *Assembler) AssembleString(src string) ([]uint64, error) {
	return a.Assemble(strings.NewReader(src))
}

// Assemble reads the whole input and returns the encoded words. On error no
// words are returned.
func (a *Assembler) Assemble(input io.Reader) (words []uint64, err error) {
	scanner := bufio.NewScanner(input)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		word, ok, lerr := a.AssembleLine(line)
		if lerr != nil {
			return nil, &SyntaxError{Line: lineno, Text: strings.TrimSpace(line), Err: lerr}
		}
		if ok {
			words = append(words, word)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, err
	}

	return words, nil
}

// AssembleLine assembles one line. ok is false for blank and comment-only
// lines.
func (a *Assembler) AssembleLine(line string) (word uint64, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	line, err = expand(line)
	if err != nil {
		return 0, false, err
	}

	tokens := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(tokens) == 0 {
		return 0, false, nil
	}

	word, err = encode(strings.ToLower(tokens[0]), tokens[1:])
	if err != nil {
		return 0, false, err
	}

	return word, true, nil
}

// expand replaces every $(expr) with its decimal value.
func expand(line string) (out string, err error) {
	out = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
			return str
		}
		return value.String()
	})

	return out, err
}

// parenEval does compile-time $(...) evaluations.
func parenEval(expr string) (*big.Int, error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExpression, err)
	}

	stInt, ok := dict["rc"].(starlark.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrExpression, expr)
	}

	return stInt.BigInt(), nil
}

func encode(mnemonic string, ops []string) (uint64, error) {
	switch mnemonic {
	case ".word":
		if len(ops) != 1 {
			return 0, operandCount(mnemonic, 1, len(ops))
		}
		return parseImmediate(ops[0])
	case "nop":
		if len(ops) != 0 {
			return 0, operandCount(mnemonic, 0, len(ops))
		}
		mnemonic, ops = "add", []string{"x0", "x0", "x0"}
	}

	def, ok := insts.Lookup(mnemonic)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMnemonic, mnemonic)
	}

	want := operandCounts[def.Format]
	if len(ops) != want {
		return 0, operandCount(mnemonic, want, len(ops))
	}

	f := def.Fields()
	var err error

	switch def.Format {
	case insts.FormatR:
		err = registers(ops, &f.Rd, &f.Rs1, &f.Rs2)
	case insts.FormatUnary:
		err = registers(ops, &f.Rd, &f.Rs1)
	case insts.FormatI:
		if err = registers(ops[:2], &f.Rd, &f.Rs1); err == nil {
			f.Imm, err = parseImmediate(ops[2])
		}
	case insts.FormatLoad:
		if err = registers(ops[:1], &f.Rd); err == nil {
			f.Imm, f.Rs1, err = parseIndexed(ops[1])
		}
	case insts.FormatStore:
		if err = registers(ops[:1], &f.Rs2); err == nil {
			f.Imm, f.Rs1, err = parseIndexed(ops[1])
		}
	case insts.FormatJump:
		if err = registers(ops[:1], &f.Rd); err == nil {
			f.Imm, err = parseImmediate(ops[1])
		}
	case insts.FormatBranch:
		return encodeBranch(def, ops)
	case insts.FormatVaultWrite:
		if err = registers(ops[:1], &f.Rs1); err == nil {
			f.Imm, err = parseImmediate(ops[1])
		}
	case insts.FormatVaultSign:
		var key uint64
		if key, err = parseImmediate(ops[0]); err == nil {
			f.Rd = uint8(key)
			f.Imm, f.Rs1, err = parseIndexed(ops[1])
		}
	}

	if err != nil {
		return 0, err
	}

	return insts.Encode(f), nil
}

var operandCounts = map[insts.Format]int{
	insts.FormatR:          3,
	insts.FormatUnary:      2,
	insts.FormatI:          3,
	insts.FormatLoad:       2,
	insts.FormatStore:      2,
	insts.FormatJump:       2,
	insts.FormatBranch:     3,
	insts.FormatVaultWrite: 2,
	insts.FormatVaultSign:  2,
	insts.FormatSystem:     0,
}

func operandCount(mnemonic string, want, got int) error {
	return fmt.Errorf("%w: %s takes %d, got %d", ErrOperandCount, mnemonic, want, got)
}

func encodeBranch(def *insts.Definition, ops []string) (uint64, error) {
	b := insts.BranchFields{Opcode: def.Opcode, Funct3: def.Funct3}

	if err := registers(ops[:2], &b.Rs1, &b.Rs2); err != nil {
		return 0, err
	}

	disp, err := parseImmediate(ops[2])
	if err != nil {
		return 0, err
	}
	b.Displacement = int64(disp)

	return insts.EncodeBranch(b), nil
}

func registers(tokens []string, dst ...*uint8) error {
	for i, tok := range tokens {
		r, err := parseRegister(tok)
		if err != nil {
			return err
		}
		*dst[i] = r
	}
	return nil
}

func parseRegister(tok string) (uint8, error) {
	m := reRegister.FindStringSubmatch(tok)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrRegister, tok)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrRegister, tok)
	}

	if err := insts.CheckReg(n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRegister, err)
	}

	return uint8(n), nil
}

// parseImmediate parses a literal of any width and returns its low 64 bits
// in two's complement.
func parseImmediate(tok string) (uint64, error) {
	v, ok := new(big.Int).SetString(tok, 0)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrImmediate, tok)
	}

	return v.And(v, mask64).Uint64(), nil
}

// parseIndexed parses offset(xN). An empty offset means 0.
func parseIndexed(tok string) (offset uint64, reg uint8, err error) {
	m := reIndexed.FindStringSubmatch(tok)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrIndexedOperand, tok)
	}

	if m[1] != "" {
		if offset, err = parseImmediate(m[1]); err != nil {
			return 0, 0, err
		}
	}

	reg, err = parseRegister(m[2])

	return offset, reg, err
}
