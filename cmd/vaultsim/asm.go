package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaultsim/asm"
	"github.com/sarchlab/vaultsim/loader"
)

func newAsmCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "asm SOURCE",
		Short: "Assemble a program and print a listing or write a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := loader.ReadProgram(args[0])
			if err != nil {
				return err
			}

			a.logger.Debug("assembled", "source", args[0], "words", len(words))

			if output != "" {
				return loader.WriteProgram(output, words)
			}

			out := cmd.OutOrStdout()
			for i, w := range words {
				fmt.Fprintf(out, "%04x  %016x  %s\n", i*8, w, asm.Disassemble(w))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write little-endian words to this file instead of a listing")

	return cmd
}
