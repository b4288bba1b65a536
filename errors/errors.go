// Package errors defines all exported error sentinels for the kmercount library.
//
// This is the single source of truth for error values. Both the top-level
// kmercount package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import (
	"errors"
	"fmt"
)

// Configuration errors (rejected at construction time)
var (
	ErrInvalidK            = errors.New("kmercount: k must be at least 1")
	ErrCapacityViolation   = errors.New("kmercount: k exceeds codec capacity")
	ErrInvalidTopN         = errors.New("kmercount: N must be at least 1")
	ErrInvalidWorkers      = errors.New("kmercount: worker count must be at least 1")
	ErrInvalidBlockSize    = errors.New("kmercount: block size must be at least k")
	ErrInvalidHashConfig   = errors.New("kmercount: hash table max load factor must be in (0, 1)")
	ErrInvalidSpillConfig  = errors.New("kmercount: spill threshold must be positive")
	ErrUnsupportedAlphabet = errors.New("kmercount: unsupported alphabet")
)

// Counting errors
var (
	ErrInvalidSymbol = errors.New("kmercount: invalid symbol")
	ErrChunkTooShort = errors.New("kmercount: non-final block shorter than k-1 bytes")
)

// Spill errors
var (
	ErrCorruptSpillFile = errors.New("kmercount: corrupt spill file")
	// ErrChecksumFailed wraps ErrCorruptSpillFile so both match errors.Is.
	ErrChecksumFailed = fmt.Errorf("%w: checksum verification failed", ErrCorruptSpillFile)
)

// Lifecycle errors
var (
	ErrEngineStarted = errors.New("kmercount: engine already started")
	ErrEngineNotDone = errors.New("kmercount: engine has not finished a successful run")
	ErrEngineClosed  = errors.New("kmercount: engine is closed")
)
