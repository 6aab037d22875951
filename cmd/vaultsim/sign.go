package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaultsim/signing"
)

// errInvalidSignature makes verify exit non-zero on a bad artifact.
var errInvalidSignature = errors.New("signature does not match")

func (a *app) signer(cmd *cobra.Command, key int, backend string) (*signing.Signer, error) {
	v, err := a.cfg.NewVault()
	if err != nil {
		return nil, err
	}

	h, err := a.hasher(backend)
	if err != nil {
		return nil, err
	}

	if !cmd.Flags().Changed("key") {
		key = a.cfg.Vault.KeyIndex
	}

	return signing.NewSigner(v, key, h), nil
}

func newSignCmd(a *app) *cobra.Command {
	var (
		output  string
		key     int
		backend string
	)

	cmd := &cobra.Command{
		Use:   "sign DOCUMENT",
		Short: "Append a vault signature to a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signer(cmd, key, backend)
			if err != nil {
				return err
			}

			in := args[0]
			if output == "" {
				output = in + ".signed"
			}

			res, err := s.SignFile(in, output)
			if err != nil {
				return err
			}

			sig := res.Signature
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %016x %016x %016x %016x\n", output, sig[0], sig[1], sig[2], sig[3])

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact path (default DOCUMENT.signed)")
	cmd.Flags().IntVar(&key, "key", 0, "vault key slot (default from configuration)")
	cmd.Flags().StringVar(&backend, "backend", "pipeline", "hash backend: pipeline or reference")

	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		key     int
		backend string
	)

	cmd := &cobra.Command{
		Use:   "verify ARTIFACT",
		Short: "Check the signature at the end of a signed artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signer(cmd, key, backend)
			if err != nil {
				return err
			}

			res, err := s.VerifyFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status := "VALID"
			if !res.Valid {
				status = "INVALID"
			}
			fmt.Fprintf(out, "%s: %s (%d document bytes)\n", args[0], status, res.DocumentSize)

			for i := range res.Computed {
				fmt.Fprintf(out, "  %c recovered=%016x computed=%016x\n", 'A'+i, res.Recovered[i], res.Computed[i])
			}

			if !res.Valid {
				return errInvalidSignature
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&key, "key", 0, "vault key slot (default from configuration)")
	cmd.Flags().StringVar(&backend, "backend", "pipeline", "hash backend: pipeline or reference")

	return cmd
}
