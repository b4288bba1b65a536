// Package tier selects the N highest count tiers from a key/count sequence.
//
// A tier is the set of keys sharing one distinct count. Selecting N tiers
// returns every key whose count is among the N largest distinct counts, so the
// result holds at least N entries whenever ties occur.
package tier

import (
	"container/heap"
	"iter"
)

// maxPresize caps the capacity hint of the distinct-count set.
const maxPresize = 1024

// Entry is a selected key and its count.
type Entry[K comparable] struct {
	Key   K
	Count uint64
}

// Threshold returns the smallest of the n largest distinct counts in seq.
// ok is false when seq holds no positive counts. When seq has fewer than n
// distinct counts, the smallest count present is returned.
func Threshold(seq iter.Seq[uint64], n int) (threshold uint64, ok bool) {
	if n < 1 {
		return 0, false
	}
	h := &countHeap{}
	// n is caller input with no upper bound; size by what the data can fill.
	members := make(map[uint64]struct{}, min(n, maxPresize))
	for c := range seq {
		if c == 0 {
			continue
		}
		if _, dup := members[c]; dup {
			continue
		}
		if h.Len() < n {
			heap.Push(h, c)
			members[c] = struct{}{}
			continue
		}
		if c > (*h)[0] {
			delete(members, (*h)[0])
			(*h)[0] = c
			heap.Fix(h, 0)
			members[c] = struct{}{}
		}
	}
	if h.Len() == 0 {
		return 0, false
	}
	return (*h)[0], true
}

// Top runs the tiered extraction over all. The sequence is ranged over twice:
// once to find the threshold and once to collect the entries at or above it.
// Entries are returned in sequence order.
func Top[K comparable](all iter.Seq2[K, uint64], n int) []Entry[K] {
	threshold, ok := Threshold(func(yield func(uint64) bool) {
		for _, c := range all {
			if !yield(c) {
				return
			}
		}
	}, n)
	if !ok {
		return nil
	}
	var out []Entry[K]
	for k, c := range all {
		if c >= threshold {
			out = append(out, Entry[K]{Key: k, Count: c})
		}
	}
	return out
}

// countHeap is a min-heap of distinct counts.
type countHeap []uint64

func (h countHeap) Len() int           { return len(h) }
func (h countHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h countHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *countHeap) Push(x any)        { *h = append(*h, x.(uint64)) }
func (h *countHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
