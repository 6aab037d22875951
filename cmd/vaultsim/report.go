package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/vaultsim/timing/pipeline"
)

// regValue is one non-zero register in a report.
type regValue struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// report is the outcome of one run.
type report struct {
	ID           string     `json:"id" yaml:"id"`
	Program      string     `json:"program" yaml:"program"`
	Mode         string     `json:"mode" yaml:"mode"`
	PC           uint64     `json:"pc" yaml:"pc"`
	Cycles       uint64     `json:"cycles" yaml:"cycles"`
	Instructions uint64     `json:"instructions" yaml:"instructions"`
	CPI          float64    `json:"cpi" yaml:"cpi"`
	Fetched      uint64     `json:"fetched" yaml:"fetched"`
	Flushes      uint64     `json:"flushes" yaml:"flushes"`
	DataAccesses uint64     `json:"data_accesses,omitempty" yaml:"data_accesses,omitempty"`
	DataHits     uint64     `json:"data_hits,omitempty" yaml:"data_hits,omitempty"`
	DataMisses   uint64     `json:"data_misses,omitempty" yaml:"data_misses,omitempty"`
	Registers    []regValue `json:"registers" yaml:"registers"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
}

func newReport(program, mode string, pc uint64, regs [32]uint64, runErr error) *report {
	r := &report{
		ID:        uuid.NewString(),
		Program:   program,
		Mode:      mode,
		PC:        pc,
		Registers: []regValue{},
	}

	for i, v := range regs {
		if v != 0 {
			r.Registers = append(r.Registers, regValue{
				Name:  fmt.Sprintf("x%d", i),
				Value: fmt.Sprintf("%#x", v),
			})
		}
	}

	if runErr != nil {
		r.Error = runErr.Error()
	}

	return r
}

func (r *report) withStats(s pipeline.Statistics) *report {
	r.Cycles = s.Cycles
	r.Instructions = s.Instructions
	r.CPI = s.CPI()
	r.Fetched = s.Fetched
	r.Flushes = s.Flushes
	r.DataAccesses = s.DataAccesses
	r.DataHits = s.DataHits
	r.DataMisses = s.DataMisses

	return r
}

func (r *report) render(out io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(r)
	case "", "text":
		r.renderText(out)
		return nil
	}

	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

func (r *report) renderText(out io.Writer) {
	fmt.Fprintf(out, "Program: %s\n", r.Program)
	fmt.Fprintf(out, "Run: %s (%s)\n", r.ID, r.Mode)
	fmt.Fprintf(out, "Total Instructions: %d\n", r.Instructions)
	if r.Mode == modePipeline {
		fmt.Fprintf(out, "Total Cycles: %d\n", r.Cycles)
		fmt.Fprintf(out, "CPI: %.2f\n", r.CPI)
		fmt.Fprintf(out, "\n")
		fmt.Fprintf(out, "Pipeline Events:\n")
		fmt.Fprintf(out, "  Fetched: %d\n", r.Fetched)
		fmt.Fprintf(out, "  Flushes: %d\n", r.Flushes)
		if r.DataAccesses > 0 {
			fmt.Fprintf(out, "  Data accesses: %d (%d hits, %d misses)\n",
				r.DataAccesses, r.DataHits, r.DataMisses)
		}
	}
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Registers:\n")
	for _, reg := range r.Registers {
		fmt.Fprintf(out, "  %-3s = %s\n", reg.Name, reg.Value)
	}
	if r.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", r.Error)
	}
}
