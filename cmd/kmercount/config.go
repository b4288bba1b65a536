package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/tamirms/kmercount"
)

// Config holds the tunables read from an optional TOML file. Command-line
// flags that are set explicitly override the file.
type Config struct {
	// Workers bounds in-flight chunk counters. Default: runtime.NumCPU()
	Workers int `toml:"workers"`

	// ResolveWorkers bounds concurrent spill file reads while resolving.
	// Default: Workers
	ResolveWorkers int `toml:"resolve_workers"`

	// BlockSize is the read block size in bytes. Default: 32 KiB
	BlockSize int `toml:"block_size"`

	// SpillThreshold is the distinct k-mer count above which the aggregate is
	// spilled. 0 derives it from the input size and k; -1 disables spilling.
	SpillThreshold int `toml:"spill_threshold"`

	// TempDir is where spill files are written. Default: os.TempDir()
	TempDir string `toml:"temp_dir"`

	// Alphabet is "nucleotide" or "bytes". Default: nucleotide
	Alphabet string `toml:"alphabet"`

	// StripLineBreaks drops '\n' and '\r' from the input. Default: true
	StripLineBreaks bool `toml:"strip_line_breaks"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`
}

func defaultConfig() *Config {
	return &Config{
		Workers:         runtime.NumCPU(),
		BlockSize:       kmercount.DefaultBlockSize,
		Alphabet:        "nucleotide",
		StripLineBreaks: true,
	}
}

// LoadConfig reads a TOML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	config := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}
	return config, nil
}

// options converts the configuration into engine options.
func (c *Config) options() ([]kmercount.Option, error) {
	alphabet, err := kmercount.ParseAlphabet(c.Alphabet)
	if err != nil {
		return nil, err
	}
	opts := []kmercount.Option{
		kmercount.WithWorkers(c.Workers),
		kmercount.WithBlockSize(c.BlockSize),
		kmercount.WithAlphabet(alphabet),
	}
	if c.ResolveWorkers != 0 {
		opts = append(opts, kmercount.WithResolveWorkers(c.ResolveWorkers))
	}
	switch {
	case c.SpillThreshold < 0:
		opts = append(opts, kmercount.WithoutSpill())
	case c.SpillThreshold > 0:
		opts = append(opts, kmercount.WithSpillThreshold(c.SpillThreshold))
	}
	if c.TempDir != "" {
		opts = append(opts, kmercount.WithTempDir(c.TempDir))
	}
	if c.StripLineBreaks {
		opts = append(opts, kmercount.WithStripLineBreaks())
	}
	return opts, nil
}
