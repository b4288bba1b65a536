package kmercount

import (
	"cmp"
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// allTiers asks for more tiers than any test input has, so results hold the
// complete count table.
const allTiers = 1 << 30

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomDNA returns n symbols over ACGTN in mixed case, weighted so that
// N is rare.
func randomDNA(rng *rand.Rand, n int) []byte {
	const letters = "ACGTACGTACGTacgtN"
	out := make([]byte, n)
	for i := range out {
		out[i] = letters[rng.IntN(len(letters))]
	}
	return out
}

// sliceSource delivers fixed blocks, marking the last one end-of-stream.
type sliceSource struct {
	blocks []Block
	i      int
}

func blocksOf(parts ...string) *sliceSource {
	s := &sliceSource{}
	for i, p := range parts {
		s.blocks = append(s.blocks, Block{Data: []byte(p), EndOfStream: i == len(parts)-1})
	}
	return s
}

func (s *sliceSource) Next() (Block, error) {
	if s.i >= len(s.blocks) {
		return Block{}, io.EOF
	}
	b := s.blocks[s.i]
	s.i++
	return b, nil
}

// errSource fails after delivering its blocks.
type errSource struct {
	blocks []Block
	err    error
}

func (s *errSource) Next() (Block, error) {
	if len(s.blocks) == 0 {
		return Block{}, s.err
	}
	b := s.blocks[0]
	s.blocks = s.blocks[1:]
	return b, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine creates an engine whose spill directory lives under the
// test's temp dir and is closed at cleanup.
func newTestEngine(t *testing.T, k, n int, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithTempDir(t.TempDir())}, opts...)
	e, err := NewEngine(k, n, opts...)
	if err != nil {
		t.Fatalf("NewEngine(k=%d, n=%d): %v", k, n, err)
	}
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return e
}

// runEngine counts src and resolves the top n tiers.
func runEngine(t *testing.T, src BlockSource, k, n int, opts ...Option) ([]Result, Stats) {
	t.Helper()
	e := newTestEngine(t, k, n, opts...)
	ctx := context.Background()
	if err := e.Run(ctx, src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	results, err := e.Results(ctx)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	return results, e.Stats()
}

// bruteCounts counts every k-long substring of data, lowercased.
func bruteCounts(data string, k int) map[string]uint64 {
	data = strings.ToLower(data)
	counts := make(map[string]uint64)
	for i := 0; i+k <= len(data); i++ {
		counts[data[i:i+k]]++
	}
	return counts
}

// bruteTop selects the n highest count tiers from counts in result order.
func bruteTop(counts map[string]uint64, n int) []Result {
	var distinct []uint64
	for _, c := range counts {
		distinct = append(distinct, c)
	}
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)
	if len(distinct) == 0 {
		return nil
	}
	threshold := distinct[max(len(distinct)-n, 0)]

	var out []Result
	for kmer, c := range counts {
		if c >= threshold {
			out = append(out, Result{Kmer: kmer, Count: c})
		}
	}
	slices.SortFunc(out, func(a, b Result) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Kmer, b.Kmer)
	})
	return out
}

func sumCounts(results []Result) uint64 {
	var sum uint64
	for _, r := range results {
		sum += r.Count
	}
	return sum
}

func requireResults(t *testing.T, got, want []Result) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d\ngot:  %v\nwant: %v", len(got), len(want), truncate(got), truncate(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func truncate(r []Result) []Result {
	if len(r) > 20 {
		return r[:20]
	}
	return r
}
