package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaultsim/signing"
)

func (a *app) hasher(backend string) (*signing.Hasher, error) {
	b, err := signing.ParseBackend(backend)
	if err != nil {
		return nil, err
	}

	return signing.NewHasher(
		signing.WithBackend(b),
		signing.WithBlockCycles(a.cfg.BlockCycles),
		signing.WithLogger(a.logger.Named("hash")),
	), nil
}

func newHashCmd(a *app) *cobra.Command {
	var (
		backend string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "hash FILE...",
		Short: "Hash files with the block mix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hasher(backend)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				res, err := h.HashFile(path)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%016x  %s\n", res.FinalHash, path)
				if verbose {
					d := res.Digest
					fmt.Fprintf(out, "  A=%016x B=%016x C=%016x D=%016x\n", d[0], d[1], d[2], d[3])
					fmt.Fprintf(out, "  blocks=%d cycles=%d backend=%s\n", len(res.Blocks), res.Cycles(), h.Backend())
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "pipeline", "hash backend: pipeline or reference")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the digest words and cycle counts")

	return cmd
}
