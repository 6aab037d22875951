// Package benchmarks runs small programs on the pipeline model and reports
// their timing.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sarchlab/vaultsim/asm"
	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/timing/cache"
	"github.com/sarchlab/vaultsim/timing/pipeline"
	"github.com/sarchlab/vaultsim/vault"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// Fetched is the number of instruction words fetched
	Fetched uint64 `json:"fetched"`

	// PipelineFlushes is the number of wrong-path instructions dropped
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// DCache counters (if cache enabled)
	DCacheAccesses uint64 `json:"dcache_accesses,omitempty"`
	DCacheHits     uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses   uint64 `json:"dcache_misses,omitempty"`
	DCacheLatency  uint64 `json:"dcache_latency,omitempty"`

	// Result is the value of the benchmark's result register
	Result uint64 `json:"result"`

	// Expected is the value Result should hold
	Expected uint64 `json:"expected"`

	// Passed is set when the run finished and Result matched
	Passed bool `json:"passed"`

	// Error is the run error, if any
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the machine state (registers, memory, vault)
	Setup func(regFile *emu.RegFile, memory *emu.Memory, v *vault.Vault)

	// Source is the assembly text. Program takes precedence when set.
	Source string

	// Program is the already assembled program
	Program []uint64

	// ResultReg is the register checked after the run
	ResultReg uint8

	// Expected is the value ResultReg should hold
	Expected uint64
}

func (b Benchmark) words() ([]uint64, error) {
	if b.Program != nil {
		return b.Program, nil
	}

	return asm.New().AssembleString(b.Source)
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache enables data cache simulation
	EnableDCache bool

	// Cache is the data cache geometry
	Cache cache.Config

	// MemorySize is the memory size of every benchmark machine
	MemorySize int

	// MaxCycles bounds each run
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives per-benchmark pipeline logs
	Logger hclog.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: true,
		Cache:        cache.DefaultConfig(),
		MemorySize:   4096,
		MaxCycles:    pipeline.DefaultMaxCycles,
		Output:       os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = hclog.NewNullLogger()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		Expected:    bench.Expected,
	}

	regFile := &emu.RegFile{}
	memory := emu.NewMemory(h.config.MemorySize)
	v := vault.New()

	if bench.Setup != nil {
		bench.Setup(regFile, memory, v)
	}

	words, err := bench.words()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	logger := h.config.Logger.Named(bench.Name)
	opts := []pipeline.PipelineOption{
		pipeline.WithVault(v),
		pipeline.WithLogger(logger),
	}
	if h.config.EnableDCache {
		opts = append(opts, pipeline.WithDataCache(cache.New(h.config.Cache)))
	}

	pipe := pipeline.NewPipeline(regFile, memory, opts...)
	if err := pipe.LoadProgram(words); err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	runErr := pipe.Run(h.config.MaxCycles)
	result.WallTime = time.Since(start)

	stats := pipe.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.Fetched = stats.Fetched
	result.PipelineFlushes = stats.Flushes
	result.DCacheAccesses = stats.DataAccesses
	result.DCacheHits = stats.DataHits
	result.DCacheMisses = stats.DataMisses
	result.DCacheLatency = stats.DataLatency
	result.Result = regFile.ReadReg(bench.ResultReg)

	if runErr != nil {
		result.Error = runErr.Error()
	}
	result.Passed = runErr == nil && result.Result == bench.Expected

	logger.Debug("benchmark finished", "cycles", stats.Cycles, "passed", result.Passed)

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== vaultsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Result: %#x (expected %#x)\n", r.Result, r.Expected)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Fetched:              %d\n", r.Fetched)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)

		if r.DCacheAccesses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:    %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses:  %d\n", r.DCacheMisses)
			_, _ = fmt.Fprintf(h.config.Output, "  Latency: %d\n", r.DCacheLatency)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,fetched,flushes,dcache_hits,dcache_misses,result,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%#x,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.Fetched,
			r.PipelineFlushes,
			r.DCacheHits,
			r.DCacheMisses,
			r.Result,
			r.Passed,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	DCacheEnabled bool   `json:"dcache_enabled"`
	MemorySize    int    `json:"memory_size"`
	MaxCycles     uint64 `json:"max_cycles"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks whose result matched
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.InstructionsRetired
		s.TotalWallTime += r.WallTime
		if r.Passed {
			s.Passed++
		}
	}

	if s.TotalInstructions > 0 {
		s.AverageCPI = float64(s.TotalCycles) / float64(s.TotalInstructions)
	}

	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				DCacheEnabled: h.config.EnableDCache,
				MemorySize:    h.config.MemorySize,
				MaxCycles:     h.config.MaxCycles,
			},
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
