package benchmarks

import (
	"fmt"
	"strings"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/signing"
	"github.com/sarchlab/vaultsim/vault"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline characteristic.
//
// The pipeline has no forwarding, so every program keeps a consumer at
// least two instructions behind its producer.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		branchTaken(),
		loopSimulation(),
		vaultSign(),
		hashBlock(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// a vault signature and one hash block.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		vaultSign(),
		hashBlock(),
	}
}

// Select returns the named benchmarks, in the order given. No names means
// all of them.
func Select(names []string) ([]Benchmark, error) {
	all := GetMicrobenchmarks()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Benchmark, len(all))
	for _, b := range all {
		byName[b.Name] = b
	}

	out := make([]Benchmark, 0, len(names))
	for _, name := range names {
		b, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown benchmark %q", name)
		}
		out = append(out, b)
	}

	return out, nil
}

// 1. Arithmetic Sequential - independent operations, no hazards
func arithmeticSequential() Benchmark {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		for r := 1; r <= 5; r++ {
			fmt.Fprintf(&b, "addi x%d, x%d, 1\n", r, r)
		}
	}

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 ADDIs over 5 registers - measures ALU throughput",
		Source:      b.String(),
		ResultReg:   1,
		Expected:    4,
	}
}

// 2. Dependency Chain - each ADDI needs the previous result
func dependencyChain() Benchmark {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("addi x1, x1, 1\nnop\n")
	}

	return Benchmark{
		Name:        "dependency_chain",
		Description: "10 dependent ADDIs spaced by NOPs - measures the cost of no forwarding",
		Source:      b.String(),
		ResultReg:   1,
		Expected:    10,
	}
}

// 3. Memory Sequential - stores then loads back
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "Two stores and two loads - measures load/store and data cache behavior",
		Source: `
			addi x2, x0, 7
			nop
			sw x2, 0x200(x0)
			sw x2, 0x208(x0)
			lw x3, 0x200(x0)
			lw x4, 0x208(x0)
			nop
			add x5, x3, x4
		`,
		ResultReg: 5,
		Expected:  14,
	}
}

// 4. Branch Taken - four taken branches, each skipping one instruction
func branchTaken() Benchmark {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteString("beq x0, x0, 16\naddi x1, x0, 99\naddi x2, x2, 1\n")
	}

	return Benchmark{
		Name:        "branch_taken",
		Description: "4 taken BEQs - measures the redirect flush cost",
		Source:      b.String(),
		ResultReg:   2,
		Expected:    4,
	}
}

// 5. Loop - countdown with a conditional exit and a backward jump
func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "10-iteration countdown loop - measures loop overhead",
		Source: `
			addi x1, x0, 10
			addi x3, x0, 1
			nop
			add x2, x2, x3
			sub x1, x1, x3
			nop
			beq x1, x0, 16
			jal x0, -32
		`,
		ResultReg: 2,
		Expected:  10,
	}
}

// 6. Vault Sign - key write, then a four-word signature in memory
func vaultSign() Benchmark {
	data := [4]uint64{1, 2, 3, 4}

	ref := vault.New()
	ref.WriteKey(1, 0x1234)
	want, err := ref.SignBlocks(1, data)
	if err != nil {
		panic(err)
	}

	return Benchmark{
		Name:        "vault_sign",
		Description: "VWR then VSIGN over 4 words - measures vault memory traffic",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory, v *vault.Vault) {
			_ = memory.LoadWords(0x200, data[:])
		},
		Source: `
			addi x1, x0, 0x1234
			addi x2, x0, 0x200
			vwr x1, 1
			vsign 1, 0(x2)
			lw x3, 0x220(x0)
		`,
		ResultReg: 3,
		Expected:  want[0],
	}
}

// 7. Hash Block - one block of the signing mix program
func hashBlock() Benchmark {
	block := signing.Blocks([]byte("abcdefgh"))[0]
	want := vault.MixBlock(block, signing.IV)

	return Benchmark{
		Name:        "hash_block",
		Description: "One block of the mix program - measures the per-block hash cost",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory, v *vault.Vault) {
			regFile.WriteReg(1, block)
			for i, w := range signing.IV {
				regFile.WriteReg(uint8(2+i), w)
			}
		},
		Program:   signing.Program(),
		ResultReg: 2,
		Expected:  want[0],
	}
}
