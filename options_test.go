package kmercount

import (
	"errors"
	"math"
	"testing"

	kmerrors "github.com/tamirms/kmercount/errors"
	"github.com/tamirms/kmercount/internal/codec"
	"github.com/tamirms/kmercount/internal/table"
)

func TestDefaultSpillThreshold(t *testing.T) {
	tests := []struct {
		inputSize int64
		k         int
		alphabet  Alphabet
		want      int
	}{
		{0, 1, AlphabetNucleotide, 5},
		{0, 5, AlphabetNucleotide, 3125},
		{0, 11, AlphabetNucleotide, MaxResidentKeys},
		{0, 31, AlphabetNucleotide, MaxResidentKeys},
		{1000, 31, AlphabetNucleotide, 1000},
		{1000, 3, AlphabetNucleotide, 125},
		{-1, 12, AlphabetNucleotide, MaxResidentKeys},
		{0, 2, AlphabetBytes, 65536},
		{100, 2, AlphabetBytes, 100},
		{1 << 40, 16, AlphabetBytes, MaxResidentKeys},
	}
	for _, tt := range tests {
		if got := DefaultSpillThreshold(tt.inputSize, tt.k, tt.alphabet); got != tt.want {
			t.Errorf("DefaultSpillThreshold(%d, %d, %v) = %d, want %d",
				tt.inputSize, tt.k, tt.alphabet, got, tt.want)
		}
	}
}

func TestParseAlphabet(t *testing.T) {
	for name, want := range map[string]Alphabet{
		"":           AlphabetNucleotide,
		"nucleotide": AlphabetNucleotide,
		"dna":        AlphabetNucleotide,
		"bytes":      AlphabetBytes,
		"raw":        AlphabetBytes,
	} {
		got, err := ParseAlphabet(name)
		if err != nil || got != want {
			t.Errorf("ParseAlphabet(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	for _, a := range []Alphabet{AlphabetNucleotide, AlphabetBytes} {
		if got, err := ParseAlphabet(a.String()); err != nil || got != a {
			t.Errorf("ParseAlphabet(%q) does not round trip", a.String())
		}
	}
	if _, err := ParseAlphabet("protein"); !errors.Is(err, kmerrors.ErrUnsupportedAlphabet) {
		t.Errorf("ParseAlphabet(protein) = %v", err)
	}
	if AlphabetNucleotide.MaxK() != 31 || AlphabetBytes.MaxK() != 16 || Alphabet(7).MaxK() != 0 {
		t.Error("unexpected MaxK")
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := defaultEngineConfig()
	if err := cfg.validate(21, codec.Nucleotide{}); err != nil {
		t.Fatal(err)
	}
	if cfg.resolveWorkers != DefaultWorkers {
		t.Errorf("resolveWorkers = %d, want %d", cfg.resolveWorkers, DefaultWorkers)
	}
	wantHash := table.Config{InitialBuckets: DefaultBlockSize / 10, MaxLoadFactor: table.DefaultMaxLoadFactor}
	if cfg.hash != wantHash {
		t.Errorf("hash = %+v, want %+v", cfg.hash, wantHash)
	}
	if cfg.spillThreshold != MaxResidentKeys {
		t.Errorf("spillThreshold = %d, want %d", cfg.spillThreshold, MaxResidentKeys)
	}

	cfg = defaultEngineConfig()
	WithSpillThreshold(10)(cfg)
	WithoutSpill()(cfg)
	if err := cfg.validate(3, codec.Nucleotide{}); err != nil {
		t.Fatal(err)
	}
	if cfg.spillThreshold != math.MaxInt {
		t.Errorf("WithoutSpill threshold = %d", cfg.spillThreshold)
	}

	cfg = defaultEngineConfig()
	WithSpillThreshold(0)(cfg)
	if err := cfg.validate(3, codec.Nucleotide{}); !errors.Is(err, kmerrors.ErrInvalidSpillConfig) {
		t.Errorf("WithSpillThreshold(0) validate = %v, want ErrInvalidSpillConfig", err)
	}

	cfg = defaultEngineConfig()
	WithInputSize(50)(cfg)
	WithHashTableConfig(7, 0.5)(cfg)
	if err := cfg.validate(4, codec.Nucleotide{}); err != nil {
		t.Fatal(err)
	}
	if cfg.spillThreshold != 50 || cfg.hash.InitialBuckets != 7 {
		t.Errorf("threshold=%d buckets=%d", cfg.spillThreshold, cfg.hash.InitialBuckets)
	}
}
