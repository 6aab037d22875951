package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sarchlab/vaultsim/insts"
)

// regFlag collects repeated --reg xN=VALUE assignments.
type regFlag map[int]uint64

var _ pflag.Value = regFlag{}

func (r regFlag) String() string {
	idx := make([]int, 0, len(r))
	for i := range r {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	parts := make([]string, len(idx))
	for i, n := range idx {
		parts[i] = fmt.Sprintf("x%d=%#x", n, r[n])
	}

	return strings.Join(parts, ",")
}

func (r regFlag) Set(s string) error {
	for _, item := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			return fmt.Errorf("expected xN=VALUE, got %q", item)
		}

		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(name), "x"))
		if err != nil {
			return fmt.Errorf("bad register %q", name)
		}
		if err := insts.CheckReg(n); err != nil {
			return err
		}

		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("bad value for %s: %w", name, err)
		}

		r[n] = v
	}

	return nil
}

func (r regFlag) Type() string {
	return "xN=value"
}
