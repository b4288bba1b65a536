package kmercount

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/kmercount/internal/codec"
	"github.com/tamirms/kmercount/internal/spill"
	"github.com/tamirms/kmercount/internal/table"
	"github.com/tamirms/kmercount/internal/tier"
)

// resolveTopN runs the two-phase merge over the resident aggregate and every
// spill file of s.
//
// Phase 1 takes the top n tiers of each store in isolation; the union of
// their keys is the candidate set. Phase 2 re-reads every store and sums the
// counts of candidate keys only, which gives exact global totals for each
// candidate. The final answer is the top n tiers of those totals.
//
// A key whose count is spread thinly over many stores can rank globally in
// the top n without ranking in any single store; such a key is missed. The
// candidate set is kept as is rather than widened.
func resolveTopN(ctx context.Context, s *aggregateStore, n, k int, cd codec.Codec,
	workers int, logger *slog.Logger) ([]Result, error) {
	candidates, err := discoverCandidates(ctx, s, n, workers)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved candidates",
		"candidates", len(candidates),
		"spill_files", len(s.spilled),
		"resident_keys", s.resident.Len())

	totals, err := accumulateCandidates(ctx, s, candidates, workers)
	if err != nil {
		return nil, err
	}

	entries := tier.Top(totals.All(), n)
	results := make([]Result, len(entries))
	for i, ent := range entries {
		results[i] = Result{Kmer: cd.Decode(ent.Key, k), Count: ent.Count}
	}
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Kmer, b.Kmer)
	})
	logger.Debug("resolved top tiers", "n", n, "results", len(results))
	return results, nil
}

// discoverCandidates is phase 1.
func discoverCandidates(ctx context.Context, s *aggregateStore, n, workers int) (map[codec.Key]struct{}, error) {
	var mu sync.Mutex
	candidates := make(map[codec.Key]struct{})
	add := func(entries []tier.Entry[codec.Key]) {
		mu.Lock()
		defer mu.Unlock()
		for _, ent := range entries {
			candidates[ent.Key] = struct{}{}
		}
	}

	add(tier.Top(s.resident.All(), n))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, info := range s.spilled {
		g.Go(func() error {
			return withSpill(gctx, info, func(r *spill.Reader) {
				add(tier.Top(r.All(), n))
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discover candidates: %w", err)
	}
	return candidates, nil
}

// accumulateCandidates is phase 2. Each spill file is summed into a private
// table which is then merged into the shared one under a lock.
func accumulateCandidates(ctx context.Context, s *aggregateStore, candidates map[codec.Key]struct{},
	workers int) (*table.Table, error) {
	hint := table.Config{InitialBuckets: len(candidates) * 2}
	totals := table.New(hint)
	collect := func(dst *table.Table, src iter.Seq2[codec.Key, uint64]) {
		for key, count := range src {
			if _, ok := candidates[key]; ok {
				dst.Add(key, count)
			}
		}
	}

	collect(totals, s.resident.All())

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, info := range s.spilled {
		g.Go(func() error {
			local := table.New(hint)
			err := withSpill(gctx, info, func(r *spill.Reader) {
				collect(local, r.All())
			})
			if err != nil {
				return err
			}
			mu.Lock()
			local.MergeInto(totals)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("accumulate candidates: %w", err)
	}
	return totals, nil
}

// withSpill opens one spill file, verifying its length and checksum, and
// hands it to fn.
func withSpill(ctx context.Context, info spill.Info, fn func(*spill.Reader)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := spill.Open(info)
	if err != nil {
		return fmt.Errorf("open %s: %w", info.Path, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", info.Path, cerr))
		}
	}()
	fn(r)
	return nil
}
