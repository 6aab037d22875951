package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/sarchlab/vaultsim/loader"
	"github.com/sarchlab/vaultsim/timing/core"
)

func newDebugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "debug [PROGRAM]",
		Short: "Step a program interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := core.FromConfig(a.cfg, a.logger)
			if err != nil {
				return err
			}

			con := newConsole(c, cmd.OutOrStdout())
			if len(args) == 1 {
				con.execute("program " + args[0])
			}

			fmt.Fprintln(con.out, "vaultsim debug console. Type 'help' for commands.")
			for !con.quit {
				line := prompt.Input("vaultsim> ", con.complete,
					prompt.OptionTitle("vaultsim debug"),
					prompt.OptionHistory(con.history),
				)
				con.execute(line)
			}

			return nil
		},
	}
}

type consoleCmd struct {
	usage string
	help  string
	run   func(con *console, args []string) error
}

var errUsage = errors.New("wrong arguments")

// console interprets debug commands against a Core.
type console struct {
	core    *core.Core
	out     io.Writer
	history []string
	quit    bool
}

func newConsole(c *core.Core, out io.Writer) *console {
	return &console{core: c, out: out}
}

var consoleCmds map[string]consoleCmd

func init() {
	consoleCmds = map[string]consoleCmd{
		"program": {"program PATH", "load and reset a program", (*console).cmdProgram},
		"step":    {"step [N]", "advance N cycles (default 1)", (*console).cmdStep},
		"run":     {"run [MAX]", "run until the pipeline drains", (*console).cmdRun},
		"regs":    {"regs", "show non-zero registers", (*console).cmdRegs},
		"set":     {"set xN VALUE", "write a register", (*console).cmdSet},
		"mem":     {"mem ADDR [N]", "show N words of memory", (*console).cmdMem},
		"latches": {"latches", "show the pipeline registers", (*console).cmdLatches},
		"stats":   {"stats", "show pipeline statistics", (*console).cmdStats},
		"load":    {"load PATH [ADDR]", "place a data file in memory", (*console).cmdLoad},
		"signed":  {"signed PATH ADDR", "place a signed artifact in memory", (*console).cmdSigned},
		"save":    {"save ADDR SIZE PATH", "write memory to a file", (*console).cmdSave},
		"reset":   {"reset", "clear state and reload the program", (*console).cmdReset},
		"help":    {"help", "list commands", (*console).cmdHelp},
		"quit":    {"quit", "leave the console", (*console).cmdQuit},
	}
}

func (con *console) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	con.history = append(con.history, line)

	fields := strings.Fields(line)
	name := fields[0]
	if name == "exit" {
		name = "quit"
	}

	cmd, ok := consoleCmds[name]
	if !ok {
		fmt.Fprintf(con.out, "unknown command %q\n", fields[0])
		return
	}

	if err := cmd.run(con, fields[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(con.out, "usage: %s\n", cmd.usage)
			return
		}
		fmt.Fprintf(con.out, "error: %v\n", err)
	}
}

func (con *console) complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}

	suggests := make([]prompt.Suggest, 0, len(consoleCmds))
	for name, cmd := range consoleCmds {
		suggests = append(suggests, prompt.Suggest{Text: name, Description: cmd.help})
	}
	sort.Slice(suggests, func(i, j int) bool { return suggests[i].Text < suggests[j].Text })

	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func parseNum(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func (con *console) cmdProgram(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	words, err := loader.ReadProgram(args[0])
	if err != nil {
		return err
	}

	if err := con.core.LoadProgram(words); err != nil {
		return err
	}
	if err := con.core.Reset(); err != nil {
		return err
	}

	fmt.Fprintf(con.out, "loaded %d words\n", len(words))

	return nil
}

func (con *console) cmdStep(args []string) error {
	n := uint64(1)
	if len(args) > 1 {
		return errUsage
	}
	if len(args) == 1 {
		var err error
		if n, err = parseNum(args[0]); err != nil {
			return errUsage
		}
	}

	for i := uint64(0); i < n && con.core.IsActive(); i++ {
		if err := con.core.Step(); err != nil {
			return err
		}
	}

	return con.cmdLatches(nil)
}

func (con *console) cmdRun(args []string) error {
	var limit uint64
	if len(args) > 1 {
		return errUsage
	}
	if len(args) == 1 {
		var err error
		if limit, err = parseNum(args[0]); err != nil {
			return errUsage
		}
	}

	err := con.core.Run(limit)
	s := con.core.Snapshot()
	fmt.Fprintf(con.out, "cycle %d, pc %#x\n", s.Cycle, s.PC)

	return err
}

func (con *console) cmdRegs(args []string) error {
	s := con.core.Snapshot()
	for i, v := range s.Registers {
		if v != 0 {
			fmt.Fprintf(con.out, "x%-2d = 0x%016x  %d\n", i, v, v)
		}
	}
	fmt.Fprintf(con.out, "pc  = %#x\n", s.PC)

	return nil
}

func (con *console) cmdSet(args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "x"))
	if err != nil {
		return errUsage
	}

	v, err := parseNum(args[1])
	if err != nil {
		return errUsage
	}

	return con.core.SetRegister(n, v)
}

func (con *console) cmdMem(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}

	addr, err := parseNum(args[0])
	if err != nil {
		return errUsage
	}

	n := uint64(4)
	if len(args) == 2 {
		if n, err = parseNum(args[1]); err != nil {
			return errUsage
		}
	}

	words, err := con.core.MemoryWindow(addr, int(n))
	if err != nil {
		return err
	}

	for i, w := range words {
		fmt.Fprintf(con.out, "0x%04x: %016x\n", addr+uint64(i)*8, w)
	}

	return nil
}

func (con *console) cmdLatches(args []string) error {
	s := con.core.Snapshot()

	fmt.Fprintf(con.out, "cycle %d, pc %#x\n", s.Cycle, s.PC)
	for _, l := range s.Latches {
		if !l.Valid {
			fmt.Fprintf(con.out, "  %-6s  -\n", l.Stage)
			continue
		}
		fmt.Fprintf(con.out, "  %-6s  0x%04x  %s\n", l.Stage, l.PC, l.Text)
	}
	if s.Fault != "" {
		fmt.Fprintf(con.out, "  fault: %s\n", s.Fault)
	}

	return nil
}

func (con *console) cmdStats(args []string) error {
	st := con.core.Snapshot().Stats

	fmt.Fprintf(con.out, "cycles=%d instructions=%d cpi=%.2f fetched=%d flushes=%d\n",
		st.Cycles, st.Instructions, st.CPI(), st.Fetched, st.Flushes)
	if st.DataAccesses > 0 {
		fmt.Fprintf(con.out, "data accesses=%d hits=%d misses=%d latency=%d\n",
			st.DataAccesses, st.DataHits, st.DataMisses, st.DataLatency)
	}

	return nil
}

func (con *console) cmdLoad(args []string) error {
	var (
		region loader.Region
		err    error
	)

	switch len(args) {
	case 1:
		region, err = con.core.Loader().LoadBlocks(args[0], 8)
	case 2:
		addr, perr := parseNum(args[1])
		if perr != nil {
			return errUsage
		}
		region, err = con.core.Loader().LoadBlocksAt(args[0], addr, 8)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(con.out, "%d bytes at %#x (%d padding)\n", region.Size, region.Addr, region.Padded)

	return nil
}

func (con *console) cmdSigned(args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	addr, err := parseNum(args[1])
	if err != nil {
		return errUsage
	}

	region, err := con.core.Loader().LoadSigned(args[0], addr)
	if err != nil {
		return err
	}

	fmt.Fprintf(con.out, "document %d bytes at %#x, signature at %#x\n",
		region.Content.Size, region.Content.Addr, region.Signature.Addr)

	return nil
}

func (con *console) cmdSave(args []string) error {
	if len(args) != 3 {
		return errUsage
	}

	addr, err := parseNum(args[0])
	if err != nil {
		return errUsage
	}
	size, err := parseNum(args[1])
	if err != nil {
		return errUsage
	}

	return con.core.Loader().SaveRange(addr, size, args[2])
}

func (con *console) cmdReset(args []string) error {
	if err := con.core.Reset(); err != nil {
		return err
	}

	return con.cmdLatches(nil)
}

func (con *console) cmdHelp(args []string) error {
	names := make([]string, 0, len(consoleCmds))
	for name := range consoleCmds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := consoleCmds[name]
		fmt.Fprintf(con.out, "  %-20s %s\n", cmd.usage, cmd.help)
	}

	return nil
}

func (con *console) cmdQuit(args []string) error {
	con.quit = true
	return nil
}
