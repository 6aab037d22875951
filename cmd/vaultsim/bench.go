package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaultsim/benchmarks"
)

var errBenchmarkFailed = errors.New("benchmark failed")

func newBenchCmd(a *app) *cobra.Command {
	var (
		format  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "bench [NAME...]",
		Short: "Run the timing microbenchmarks",
		Long: `Run the built-in microbenchmarks on the pipeline model and report cycles,
CPI, flushes and data-cache behavior. With no names every benchmark runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := benchmarks.Select(args)
			if err != nil {
				return err
			}

			config := benchmarks.DefaultConfig()
			config.EnableDCache = !noCache
			config.Cache = a.cfg.Cache()
			if config.EnableDCache {
				if err := config.Cache.Validate(); err != nil {
					return err
				}
			}
			config.MaxCycles = a.cfg.MaxCycles
			config.Output = cmd.OutOrStdout()
			config.Logger = a.logger.Named("bench")

			harness := benchmarks.NewHarness(config)
			harness.AddBenchmarks(selected)
			results := harness.RunAll()

			switch format {
			case "json":
				err = harness.PrintJSON(results)
			case "csv":
				harness.PrintCSV(results)
			case "", "text":
				harness.PrintResults(results)
			default:
				err = fmt.Errorf("unknown format %q (want text, json or csv)", format)
			}
			if err != nil {
				return err
			}

			if s := benchmarks.Summarize(results); s.Passed != s.TotalBenchmarks {
				return fmt.Errorf("%w: %d of %d", errBenchmarkFailed, s.TotalBenchmarks-s.Passed, s.TotalBenchmarks)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "report format: text, json or csv")
	cmd.Flags().BoolVar(&noCache, "no-dcache", false, "disable the data cache model")

	return cmd
}
