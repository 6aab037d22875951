package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sarchlab/vaultsim/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFile    string
	cpuProfile string

	cfg     *config.Config
	logger  hclog.Logger
	closer  io.Closer
	profile *os.File
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "vaultsim",
		Short: "Pipelined CPU simulator with a key vault",
		Long: `vaultsim assembles programs for a 64-bit toy ISA, runs them on a
five-stage pipeline model, and uses the same machine to hash, sign and
verify documents with keys held in a vault.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	flags.StringVar(&a.cpuProfile, "cpu-profile", "", "write a CPU profile to this file")

	rootCmd.AddCommand(
		newAsmCmd(a),
		newRunCmd(a),
		newHashCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newDebugCmd(a),
		newBenchCmd(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFile != "" {
		cfg.LogFile = a.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger, a.closer = newLogger(cfg, cmd.ErrOrStderr())

	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("starting profile: %w", err)
		}
		a.profile = f
	}

	return nil
}

func (a *app) teardown() {
	if a.profile != nil {
		pprof.StopCPUProfile()
		_ = a.profile.Close()
		a.logger.Debug("profile written", "path", a.cpuProfile)
	}

	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// newLogger builds the root logger. With a log file configured, output goes
// to a lumberjack rotating writer, which is returned as the closer.
func newLogger(cfg *config.Config, stderr io.Writer) (hclog.Logger, io.Closer) {
	var (
		out    = stderr
		closer io.Closer
	)

	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		out, closer = lj, lj
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "vaultsim",
		Level:      cfg.Level(),
		Output:     out,
		JSONFormat: cfg.LogJSON,
	})

	return logger, closer
}
