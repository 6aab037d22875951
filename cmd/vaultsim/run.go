package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/loader"
	"github.com/sarchlab/vaultsim/timing/core"
)

const (
	modePipeline = "pipeline"
	modeEmulate  = "emulate"
)

type runOptions struct {
	regs      regFlag
	maxCycles uint64
	format    string
	watch     bool
	emulate   bool
	loads     []string
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{regs: regFlag{}}

	cmd := &cobra.Command{
		Use:   "run PROGRAM",
		Short: "Run a program on the pipeline model",
		Long: `Run a program (.asm/.s source or a raw binary) until it drains, faults or
exceeds the cycle ceiling, then print a report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			rep, runErr := a.runOnce(path, opts)
			if rep != nil {
				if err := rep.render(out, opts.format); err != nil {
					return err
				}
			}

			if !opts.watch {
				return runErr
			}

			return watchFile(cmd.Context(), path, a.logger, func() {
				rep, err := a.runOnce(path, opts)
				if rep == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					return
				}
				_ = rep.render(out, opts.format)
			})
		},
	}

	flags := cmd.Flags()
	flags.Var(opts.regs, "reg", "set a register before running, e.g. --reg x1=0x10 (repeatable)")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", 0, "cycle ceiling (instruction ceiling with --emulate); 0 uses the configuration")
	flags.StringVar(&opts.format, "format", "text", "report format: text, json or yaml")
	flags.BoolVar(&opts.watch, "watch", false, "re-run whenever the program file changes")
	flags.BoolVar(&opts.emulate, "emulate", false, "run on the functional emulator instead of the pipeline")
	flags.StringArrayVar(&opts.loads, "load", nil, "place a data file in memory, PATH or PATH@ADDR (repeatable)")

	return cmd
}

// runOnce loads and runs the program. A non-nil report is returned whenever
// the program got far enough to run, even if the run itself failed.
func (a *app) runOnce(path string, opts *runOptions) (*report, error) {
	words, err := loader.ReadProgram(path)
	if err != nil {
		return nil, err
	}

	if opts.emulate {
		return a.emulate(path, words, opts)
	}

	c, err := core.FromConfig(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	if err := c.LoadProgram(words); err != nil {
		return nil, err
	}

	if err := a.prepare(c.Loader(), c.RegFile(), opts); err != nil {
		return nil, err
	}

	runErr := c.Run(opts.maxCycles)
	s := c.Snapshot()
	a.logger.Info("run finished", "program", path, "cycles", s.Cycle, "error", runErr)

	return newReport(path, modePipeline, s.PC, s.Registers, runErr).withStats(s.Stats), runErr
}

func (a *app) emulate(path string, words []uint64, opts *runOptions) (*report, error) {
	v, err := a.cfg.NewVault()
	if err != nil {
		return nil, err
	}

	limit := opts.maxCycles
	if limit == 0 {
		limit = a.cfg.MaxCycles
	}

	regFile := &emu.RegFile{}
	memory := emu.NewMemory(a.cfg.MemorySize)
	e := emu.NewEmulator(regFile, memory, emu.WithVault(v), emu.WithMaxInstructions(limit))

	if err := e.LoadProgram(words); err != nil {
		return nil, err
	}

	l := loader.NewFileLoader(memory)
	l.Seek(uint64(len(words)) * 8)
	if err := a.prepare(l, regFile, opts); err != nil {
		return nil, err
	}

	runErr := e.Run()
	a.logger.Info("run finished", "program", path, "instructions", e.InstructionCount(), "error", runErr)

	rep := newReport(path, modeEmulate, e.PC(), regFile.X, runErr)
	rep.Instructions = e.InstructionCount()

	return rep, runErr
}

// prepare places --load files and applies --reg values.
func (a *app) prepare(l *loader.FileLoader, regFile *emu.RegFile, opts *runOptions) error {
	for _, arg := range opts.loads {
		path, addr, explicit, err := parseLoad(arg)
		if err != nil {
			return err
		}

		var region loader.Region
		if explicit {
			region, err = l.LoadBlocksAt(path, addr, 8)
		} else {
			region, err = l.LoadBlocks(path, 8)
		}
		if err != nil {
			return err
		}

		a.logger.Debug("loaded data", "path", path, "addr", region.Addr, "size", region.Size)
	}

	for i, v := range opts.regs {
		if err := regFile.Set(i, v); err != nil {
			return err
		}
	}

	return nil
}

func parseLoad(arg string) (path string, addr uint64, explicit bool, err error) {
	i := strings.LastIndex(arg, "@")
	if i < 0 {
		return arg, 0, false, nil
	}

	addr, err = strconv.ParseUint(arg[i+1:], 0, 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("bad load address in %q: %w", arg, err)
	}

	return arg[:i], addr, true, nil
}
