// Package main provides the entry point for vaultsim.
// vaultsim is a five-stage pipeline simulator with a key vault, used to
// hash, sign and verify documents.
//
// For the full CLI, use: go run ./cmd/vaultsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("vaultsim - pipelined CPU simulator with a key vault")
	fmt.Println("")
	fmt.Println("Usage: vaultsim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  asm      Assemble a program")
	fmt.Println("  run      Run a program on the pipeline model")
	fmt.Println("  hash     Hash files with the block mix")
	fmt.Println("  sign     Append a vault signature to a document")
	fmt.Println("  verify   Check a signed artifact")
	fmt.Println("  debug    Step a program interactively")
	fmt.Println("  bench    Run the timing microbenchmarks")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/vaultsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/vaultsim' instead.")
	}
}
