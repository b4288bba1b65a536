// Package kmercount counts every k-mer of a large symbol sequence in one
// streaming pass and reports the N highest count tiers.
//
// A tier is the set of k-mers sharing one distinct count. Asking for N tiers
// returns every k-mer whose count is among the N largest distinct counts, so
// ties at the last tier make the result longer than N.
//
// # Basic Usage
//
//	results, err := kmercount.CountFile(ctx, "genome.txt", 21, 10,
//	    kmercount.WithWorkers(8),
//	    kmercount.WithStripLineBreaks(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("%s,%d\n", r.Kmer, r.Count)
//	}
//
// An Engine can also be driven from any BlockSource:
//
//	e, err := kmercount.NewEngine(k, n, kmercount.WithSpillThreshold(1<<20))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//	if err := e.Run(ctx, kmercount.NewBytesSource(data, 1<<15)); err != nil {
//	    log.Fatal(err)
//	}
//	results, err := e.Results(ctx)
//
// # Memory
//
// Counters hold one table per in-flight block. The aggregate is spilled to a
// flat record file whenever it holds more distinct k-mers than the spill
// threshold, and the spill files are merged when Results is called.
//
// # Package Structure
//
//   - Public API: engine.go (NewEngine, Run, Results, CountFile), source.go (BlockSource)
//   - Configuration: options.go (Option, With* functions, spill policy)
//   - Counting: counter.go (per-chunk counter tasks), store.go (aggregate and spill)
//   - Resolution: resolver.go (two-phase top-N merge)
//   - Internals: internal/codec, internal/chunk, internal/table, internal/tier,
//     internal/spill, internal/task, internal/bits
package kmercount
