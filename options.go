package kmercount

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	kmerrors "github.com/tamirms/kmercount/errors"
	"github.com/tamirms/kmercount/internal/bits"
	"github.com/tamirms/kmercount/internal/codec"
	"github.com/tamirms/kmercount/internal/table"
)

const (
	// DefaultWorkers is the default bound on in-flight chunk counters.
	DefaultWorkers = 4

	// DefaultBlockSize is the block size CountFile reads with.
	DefaultBlockSize = 1 << 15

	// MaxResidentKeys caps the default spill threshold (5^11 distinct keys).
	MaxResidentKeys = 48_828_125

	// hashBucketsPerBlockDivisor derives the default sizing hint:
	// one initial bucket per 10 bytes of block.
	hashBucketsPerBlockDivisor = 10
)

// Alphabet selects the codec used to pack k-mers.
type Alphabet int

const (
	// AlphabetNucleotide accepts A, C, G, T, N in either case, k <= 31.
	AlphabetNucleotide Alphabet = iota
	// AlphabetBytes accepts any byte value, k <= 16.
	AlphabetBytes
)

func (a Alphabet) String() string {
	switch a {
	case AlphabetNucleotide:
		return "nucleotide"
	case AlphabetBytes:
		return "bytes"
	default:
		return fmt.Sprintf("Alphabet(%d)", int(a))
	}
}

// ParseAlphabet maps a name accepted by String back to an Alphabet.
func ParseAlphabet(name string) (Alphabet, error) {
	switch name {
	case "nucleotide", "dna", "":
		return AlphabetNucleotide, nil
	case "bytes", "raw":
		return AlphabetBytes, nil
	default:
		return 0, fmt.Errorf("%w: %q", kmerrors.ErrUnsupportedAlphabet, name)
	}
}

func (a Alphabet) codec() (codec.Codec, error) {
	switch a {
	case AlphabetNucleotide:
		return codec.Nucleotide{}, nil
	case AlphabetBytes:
		return codec.Bytes{}, nil
	default:
		return nil, fmt.Errorf("%w: %v", kmerrors.ErrUnsupportedAlphabet, a)
	}
}

// MaxK returns the longest k-mer the alphabet's codec can hold.
func (a Alphabet) MaxK() int {
	c, err := a.codec()
	if err != nil {
		return 0
	}
	return c.MaxK()
}

// Option is a functional option for configuring an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	workers        int
	resolveWorkers int
	blockSize      int
	spillThreshold int  // 0 = derive from policy
	spillSet       bool // WithSpillThreshold
	spillDisabled  bool // WithoutSpill
	inputSize      int64
	tempDir        string
	hash           table.Config
	hashSet        bool
	alphabet       Alphabet
	logger         *slog.Logger
	stripBreaks    bool
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		workers:   DefaultWorkers,
		blockSize: DefaultBlockSize,
		alphabet:  AlphabetNucleotide,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithWorkers bounds the number of chunk counters in flight (unjoined) at once.
func WithWorkers(n int) Option {
	return func(c *engineConfig) {
		c.workers = n
	}
}

// WithResolveWorkers bounds how many spill files are read concurrently while
// resolving the top N. Defaults to the counter bound.
func WithResolveWorkers(n int) Option {
	return func(c *engineConfig) {
		c.resolveWorkers = n
	}
}

// WithBlockSize sets the block size used by CountFile and the default hash
// sizing hint. Must be at least k.
func WithBlockSize(n int) Option {
	return func(c *engineConfig) {
		c.blockSize = n
	}
}

// WithSpillThreshold spills the aggregate whenever it holds more than n
// distinct keys. Overrides the default policy; n must be at least 1.
func WithSpillThreshold(n int) Option {
	return func(c *engineConfig) {
		c.spillThreshold = n
		c.spillSet = true
		c.spillDisabled = false
	}
}

// WithoutSpill keeps the whole aggregate in memory.
func WithoutSpill() Option {
	return func(c *engineConfig) {
		c.spillDisabled = true
	}
}

// WithInputSize gives the default spill policy the input length in bytes.
func WithInputSize(n int64) Option {
	return func(c *engineConfig) {
		c.inputSize = n
	}
}

// WithTempDir sets where the engine creates its private spill directory.
// Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(c *engineConfig) {
		c.tempDir = dir
	}
}

// WithHashTableConfig sets the sizing hint for per-chunk count tables.
// maxLoadFactor must be in (0, 1).
func WithHashTableConfig(initialBuckets int, maxLoadFactor float64) Option {
	return func(c *engineConfig) {
		c.hash = table.Config{InitialBuckets: initialBuckets, MaxLoadFactor: maxLoadFactor}
		c.hashSet = true
	}
}

// WithAlphabet selects the symbol codec.
func WithAlphabet(a Alphabet) Option {
	return func(c *engineConfig) {
		c.alphabet = a
	}
}

// WithLogger sets the logger for progress and spill events.
// If not provided, no logging output is produced.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStripLineBreaks makes CountFile drop '\n' and '\r' bytes from the input.
func WithStripLineBreaks() Option {
	return func(c *engineConfig) {
		c.stripBreaks = true
	}
}

// validate checks the configuration for k and fills derived defaults.
func (c *engineConfig) validate(k int, cd codec.Codec) error {
	if err := codec.CheckK(cd, k); err != nil {
		return err
	}
	if c.workers < 1 {
		return fmt.Errorf("%w: %d", kmerrors.ErrInvalidWorkers, c.workers)
	}
	if c.resolveWorkers == 0 {
		c.resolveWorkers = c.workers
	}
	if c.resolveWorkers < 1 {
		return fmt.Errorf("%w: resolve workers %d", kmerrors.ErrInvalidWorkers, c.resolveWorkers)
	}
	if c.blockSize < k {
		return fmt.Errorf("%w: block size %d, k %d", kmerrors.ErrInvalidBlockSize, c.blockSize, k)
	}
	if c.hashSet {
		if c.hash.MaxLoadFactor <= 0 || c.hash.MaxLoadFactor >= 1 || c.hash.InitialBuckets < 0 {
			return fmt.Errorf("%w: buckets %d, load factor %g",
				kmerrors.ErrInvalidHashConfig, c.hash.InitialBuckets, c.hash.MaxLoadFactor)
		}
	} else {
		c.hash = table.Config{
			InitialBuckets: c.blockSize / hashBucketsPerBlockDivisor,
			MaxLoadFactor:  table.DefaultMaxLoadFactor,
		}
	}
	if c.spillThreshold < 0 || (c.spillSet && c.spillThreshold == 0) {
		return fmt.Errorf("%w: %d", kmerrors.ErrInvalidSpillConfig, c.spillThreshold)
	}
	if c.spillThreshold == 0 {
		c.spillThreshold = DefaultSpillThreshold(c.inputSize, k, c.alphabet)
	}
	if c.spillDisabled {
		c.spillThreshold = math.MaxInt
	}
	return nil
}

// DefaultSpillThreshold is the reference spill policy: the aggregate may hold
// as many distinct keys as could possibly occur, min(symbols^k, inputSize),
// but never more than MaxResidentKeys. inputSize <= 0 means unknown.
func DefaultSpillThreshold(inputSize int64, k int, a Alphabet) int {
	symbols := uint64(5)
	if c, err := a.codec(); err == nil {
		symbols = uint64(c.Symbols())
	}
	limit := uint64(MaxResidentKeys)
	if inputSize > 0 && uint64(inputSize) < limit {
		limit = uint64(inputSize)
	}
	return int(bits.SaturatingPow(symbols, uint64(max(k, 0)), limit))
}
