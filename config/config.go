// Package config loads and saves simulator settings.
//
// Settings come from, in increasing priority: built-in defaults, a YAML
// file, and VAULTSIM_* environment variables (VAULTSIM_MAX_CYCLES,
// VAULTSIM_VAULT_KEY_INDEX, ...).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/signing"
	"github.com/sarchlab/vaultsim/timing/cache"
	"github.com/sarchlab/vaultsim/timing/pipeline"
	"github.com/sarchlab/vaultsim/vault"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VAULTSIM"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// VaultConfig holds vault contents as hex strings.
type VaultConfig struct {
	Keys     []string `mapstructure:"keys" yaml:"keys"`
	Inits    []string `mapstructure:"inits" yaml:"inits"`
	KeyIndex int      `mapstructure:"key_index" yaml:"key_index"`
}

// CacheConfig enables and shapes the data-cache model.
type CacheConfig struct {
	Enabled       bool `mapstructure:"enabled" yaml:"enabled"`
	Size          int  `mapstructure:"size" yaml:"size"`
	Associativity int  `mapstructure:"associativity" yaml:"associativity"`
	BlockSize     int  `mapstructure:"block_size" yaml:"block_size"`
}

// Config is the full simulator configuration.
type Config struct {
	MemorySize  int    `mapstructure:"memory_size" yaml:"memory_size"`
	MaxCycles   uint64 `mapstructure:"max_cycles" yaml:"max_cycles"`
	BlockCycles uint64 `mapstructure:"block_cycles" yaml:"block_cycles"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" yaml:"log_json"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`

	Vault     VaultConfig `mapstructure:"vault" yaml:"vault"`
	DataCache CacheConfig `mapstructure:"data_cache" yaml:"data_cache"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dc := cache.DefaultConfig()

	return &Config{
		MemorySize:  emu.DefaultMemorySize,
		MaxCycles:   pipeline.DefaultMaxCycles,
		BlockCycles: signing.DefaultBlockCycles,
		LogLevel:    "info",
		Vault: VaultConfig{
			Keys:  []string{},
			Inits: []string{},
		},
		DataCache: CacheConfig{
			Size:          dc.Size,
			Associativity: dc.Associativity,
			BlockSize:     dc.BlockSize,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("memory_size", d.MemorySize)
	v.SetDefault("max_cycles", d.MaxCycles)
	v.SetDefault("block_cycles", d.BlockCycles)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("vault.keys", d.Vault.Keys)
	v.SetDefault("vault.inits", d.Vault.Inits)
	v.SetDefault("vault.key_index", d.Vault.KeyIndex)
	v.SetDefault("data_cache.enabled", d.DataCache.Enabled)
	v.SetDefault("data_cache.size", d.DataCache.Size)
	v.SetDefault("data_cache.associativity", d.DataCache.Associativity)
	v.SetDefault("data_cache.block_size", d.DataCache.BlockSize)
}

// Load reads the configuration. An empty path skips the file and uses
// defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Vault.Keys = append([]string{}, c.Vault.Keys...)
	out.Vault.Inits = append([]string{}, c.Vault.Inits...)

	return &out
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.MemorySize <= 0 || c.MemorySize%8 != 0 {
		return fmt.Errorf("%w: memory_size %d must be a positive multiple of 8", ErrInvalid, c.MemorySize)
	}

	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}

	if c.Vault.KeyIndex < 0 || c.Vault.KeyIndex >= vault.NumSlots {
		return fmt.Errorf("%w: vault.key_index %d", ErrInvalid, c.Vault.KeyIndex)
	}

	if _, err := parseSlots("vault.keys", c.Vault.Keys); err != nil {
		return err
	}
	if _, err := parseSlots("vault.inits", c.Vault.Inits); err != nil {
		return err
	}

	if c.DataCache.Enabled {
		if err := c.Cache().Validate(); err != nil {
			return fmt.Errorf("%w: data_cache: %w", ErrInvalid, err)
		}
	}

	return nil
}

// Level returns the configured log level.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// Cache returns the data-cache geometry with the model's default
// latencies.
func (c *Config) Cache() cache.Config {
	dc := cache.DefaultConfig()
	dc.Size = c.DataCache.Size
	dc.Associativity = c.DataCache.Associativity
	dc.BlockSize = c.DataCache.BlockSize

	return dc
}

// NewVault builds a vault holding the configured keys and init words.
func (c *Config) NewVault() (*vault.Vault, error) {
	keys, err := parseSlots("vault.keys", c.Vault.Keys)
	if err != nil {
		return nil, err
	}

	inits, err := parseSlots("vault.inits", c.Vault.Inits)
	if err != nil {
		return nil, err
	}

	v := vault.New()
	for i, k := range keys {
		v.WriteKey(i, k)
	}
	for i, w := range inits {
		v.WriteInit(i, w)
	}

	return v, nil
}

func parseSlots(field string, values []string) ([]uint64, error) {
	if len(values) > vault.NumSlots {
		return nil, fmt.Errorf("%w: %s has %d entries, at most %d", ErrInvalid, field, len(values), vault.NumSlots)
	}

	out := make([]uint64, len(values))
	for i, s := range values {
		w, err := ParseHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %w", ErrInvalid, field, i, err)
		}
		out[i] = w
	}

	return out, nil
}

// ParseHex parses a 64-bit hex word with or without a 0x prefix.
func ParseHex(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	return strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 16, 64)
}
