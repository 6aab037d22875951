// Package main provides the vaultsim command line: assemble programs, run
// them on the pipeline model, and hash, sign and verify documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarchlab/vaultsim/translate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, translate.From("Error: %v", err))
		stop()
		os.Exit(1)
	}
}
