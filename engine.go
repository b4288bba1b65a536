package kmercount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	kmerrors "github.com/tamirms/kmercount/errors"
	"github.com/tamirms/kmercount/internal/chunk"
	"github.com/tamirms/kmercount/internal/codec"
	"github.com/tamirms/kmercount/internal/spill"
)

// State is the lifecycle phase of an Engine.
type State int32

const (
	// StateIdle is a new engine that has not started reading.
	StateIdle State = iota
	// StateStreaming means blocks are being read and counters launched.
	StateStreaming
	// StateDraining means the input is exhausted and pending counters are
	// being reconciled.
	StateDraining
	// StateDone means Run has returned.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Result is one reported k-mer and its exact count over the whole input.
type Result struct {
	Kmer  string
	Count uint64
}

// Stats describes a run.
type Stats struct {
	TotalKmers   uint64 // k-mers merged into the aggregate, spilled or not
	Chunks       int    // counters launched
	Crossings    int    // counters that also counted a crossing section
	Spills       int    // spill files written
	PeakInFlight int    // largest number of unjoined counters observed
}

// Engine counts the k-mers of one input and reports the N highest count
// tiers.
//
// Run reads the input once. The producer (the goroutine calling Run) turns
// each block into a counter covering the previous block and its crossing
// section, blocking while WithWorkers counters are unjoined. A reconciliation
// goroutine joins counters strictly in creation order and merges their tables
// into the aggregate store, which spills to disk past its threshold. Results
// then merges the resident aggregate with every spill file.
//
// An Engine runs once. Close releases its spill files.
type Engine struct {
	k     int
	n     int
	cfg   *engineConfig
	codec codec.Codec

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	pending   []*chunkCounter // FIFO by creation order
	inputDone bool
	err       error // first error of the run
	stats     Stats
	closed    bool

	store    *aggregateStore
	spillDir string

	resolveMu sync.Mutex
	results   []Result
	resolved  bool

	// reconcileHook, when set, is called with each counter's sequence
	// number just before its table is merged.
	reconcileHook func(seq uint64)
}

// NewEngine creates an engine counting k-mers of length k and reporting the
// n highest count tiers.
func NewEngine(k, n int, opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", kmerrors.ErrInvalidTopN, n)
	}
	cd, err := cfg.alphabet.codec()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(k, cd); err != nil {
		return nil, err
	}
	e := &Engine{
		k:     k,
		n:     n,
		cfg:   cfg,
		codec: cd,
	}
	e.cond = sync.NewCond(&e.mu)
	return e, nil
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns a snapshot of the run statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Run consumes src until its end-of-stream block and merges every k-mer into
// the aggregate. It returns the first error of the run: an invalid symbol, a
// read or spill failure, a non-final block shorter than k-1 bytes, or ctx
// being done. Run may be called once.
func (e *Engine) Run(ctx context.Context, src BlockSource) error {
	if err := e.start(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		e.fail(ctx.Err())
	})
	defer stop()

	reconciled := make(chan struct{})
	go func() {
		defer close(reconciled)
		e.reconcile()
	}()

	e.produce(ctx, src)

	e.mu.Lock()
	e.inputDone = true
	if e.state == StateStreaming {
		e.state = StateDraining
	}
	e.cond.Broadcast()
	e.mu.Unlock()

	<-reconciled

	e.mu.Lock()
	e.state = StateDone
	err := e.err
	stats := e.stats
	e.mu.Unlock()

	if err != nil {
		e.cfg.logger.Debug("counting failed", "error", err, "chunks", stats.Chunks)
		return err
	}
	e.cfg.logger.Info("counting finished",
		"kmers", stats.TotalKmers,
		"chunks", stats.Chunks,
		"spills", stats.Spills,
		"peak_in_flight", stats.PeakInFlight)
	return nil
}

// start moves Idle to Streaming and prepares the aggregate store.
func (e *Engine) start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return kmerrors.ErrEngineClosed
	}
	if e.state != StateIdle {
		return kmerrors.ErrEngineStarted
	}
	dir, err := os.MkdirTemp(e.cfg.tempDir, "kmercount-*")
	if err != nil {
		return fmt.Errorf("create spill directory: %w", err)
	}
	e.spillDir = dir
	e.store = newAggregateStore(e.cfg.hash, e.cfg.spillThreshold, spill.NewSequenceNamer(dir), e.cfg.logger)
	e.state = StateStreaming
	e.cfg.logger.Debug("counting started",
		"k", e.k,
		"n", e.n,
		"alphabet", e.cfg.alphabet,
		"workers", e.cfg.workers,
		"spill_threshold", e.cfg.spillThreshold,
		"spill_dir", dir)
	return nil
}

// produce pulls blocks and launches counters until end of stream or failure.
// Each block is held back until the next one arrives, because its counter
// also covers the crossing into that next block.
func (e *Engine) produce(ctx context.Context, src BlockSource) {
	var (
		prev    chunk.Chunk
		hasPrev bool
		seq     uint64 // next counter
		block   int
	)
	for {
		if err := ctx.Err(); err != nil {
			e.fail(err)
			return
		}
		blk, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			e.fail(fmt.Errorf("read block %d: %w", block, err))
			return
		}
		if !blk.EndOfStream && len(blk.Data) < e.k-1 {
			e.fail(fmt.Errorf("%w: block %d has %d bytes, k is %d",
				kmerrors.ErrChunkTooShort, block, len(blk.Data), e.k))
			return
		}
		block++
		cur := chunk.View(blk.Data)

		if hasPrev {
			if !e.launch(counterWork{seq: seq, main: prev, next: cur, hasNext: true}) {
				return
			}
			seq++
		}
		if blk.EndOfStream {
			if cur.Len() > 0 {
				e.launch(counterWork{seq: seq, main: cur})
			}
			return
		}
		prev, hasPrev = cur, true
	}
}

// launch starts a counter once fewer than the configured number are
// unjoined. It returns false without launching if the run has failed.
func (e *Engine) launch(w counterWork) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.pending) >= e.cfg.workers && e.err == nil {
		e.cond.Wait()
	}
	if e.err != nil {
		return false
	}
	e.pending = append(e.pending, startCounter(w, e.k, e.codec, e.cfg.hash))
	e.stats.Chunks++
	if w.hasNext {
		e.stats.Crossings++
	}
	e.stats.PeakInFlight = max(e.stats.PeakInFlight, len(e.pending))
	e.cond.Broadcast()
	return true
}

// reconcile joins counters in creation order and merges them into the store.
// After the first error it keeps joining, without merging, so that no counter
// goroutine outlives the run.
func (e *Engine) reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		for len(e.pending) == 0 && !e.inputDone {
			e.cond.Wait()
		}
		if len(e.pending) == 0 {
			return
		}
		head := e.pending[0]
		failed := e.err != nil
		e.mu.Unlock()

		spilled, err := e.merge(head, failed)

		e.mu.Lock()
		if err != nil && e.err == nil {
			e.err = err
		}
		if spilled {
			e.stats.Spills++
		}
		e.stats.TotalKmers = e.store.total
		e.pending[0] = nil
		e.pending = e.pending[1:]
		e.cond.Broadcast()
	}
}

// merge joins one counter and, unless the run has already failed, folds its
// table into the store. Called without the lock held; the store is only ever
// touched from the reconciliation goroutine.
func (e *Engine) merge(c *chunkCounter, failed bool) (bool, error) {
	tbl, err := c.wait()
	if err != nil || failed {
		return false, err
	}
	if e.reconcileHook != nil {
		e.reconcileHook(c.seq)
	}
	e.store.mergeIn(tbl)
	return e.store.maybeSpill()
}

// fail records err as the run's error if none is recorded yet.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil && e.state != StateDone {
		e.err = err
	}
	e.cond.Broadcast()
}

// Results resolves the N highest count tiers across the resident aggregate
// and all spill files, sorted by descending count then ascending k-mer.
// Spill files are deleted once the result is computed; later calls return
// the same slice.
func (e *Engine) Results(ctx context.Context) ([]Result, error) {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()

	e.mu.Lock()
	closed, state, runErr := e.closed, e.state, e.err
	e.mu.Unlock()
	switch {
	case closed:
		return nil, kmerrors.ErrEngineClosed
	case state != StateDone:
		return nil, fmt.Errorf("%w: state %v", kmerrors.ErrEngineNotDone, state)
	case runErr != nil:
		return nil, fmt.Errorf("%w: %w", kmerrors.ErrEngineNotDone, runErr)
	}
	if e.resolved {
		return e.results, nil
	}

	results, err := resolveTopN(ctx, e.store, e.n, e.k, e.codec, e.cfg.resolveWorkers, e.cfg.logger)
	if err != nil {
		return nil, err
	}
	if err := e.store.clear(); err != nil {
		return nil, fmt.Errorf("remove spill files: %w", err)
	}
	e.results = results
	e.resolved = true
	return results, nil
}

// Close deletes any remaining spill files and the engine's spill directory.
// It must not be called while Run is in progress. Idempotent.
func (e *Engine) Close() error {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.removeSpilled())
		e.store.resident.Reset()
	}
	if e.spillDir != "" {
		errs = append(errs, os.RemoveAll(e.spillDir))
	}
	return errors.Join(errs...)
}

// CountFile counts the k-mers of the file at path and returns its n highest
// count tiers. zstd-compressed files are decompressed transparently.
func CountFile(ctx context.Context, path string, k, n int, opts ...Option) (results []Result, err error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	var srcOpts []SourceOption
	if cfg.stripBreaks {
		srcOpts = append(srcOpts, StripLineBreaks())
	}
	src, err := OpenFileSource(path, max(cfg.blockSize, 1), srcOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	if !src.Compressed() {
		opts = append([]Option{WithInputSize(src.Size())}, opts...)
	}
	e, err := NewEngine(k, n, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, e.Close())
	}()

	if err := e.Run(ctx, src); err != nil {
		return nil, err
	}
	return e.Results(ctx)
}

var _ BlockSource = (*FileSource)(nil)
var _ BlockSource = (*BytesSource)(nil)
