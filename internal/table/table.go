// Package table implements an open-addressing Key→count table.
//
// The table honours a sizing hint: InitialBuckets sets the starting slot
// count exactly (slots are mapped with FastRange32, so any size works) and
// MaxLoadFactor sets when the table doubles. Both are performance knobs;
// counts are exact regardless of their values.
package table

import (
	"iter"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/tamirms/kmercount/internal/bits"
	"github.com/tamirms/kmercount/internal/codec"
)

const (
	// DefaultMaxLoadFactor is used when a Config leaves the factor unset.
	DefaultMaxLoadFactor = 0.75

	minBuckets = 16
	maxBuckets = math.MaxUint32
)

// Config is the sizing hint for a Table.
type Config struct {
	InitialBuckets int
	MaxLoadFactor  float64
}

// Table counts occurrences of keys. A slot is empty when its count is zero;
// the zero Key is a legitimate key, so emptiness cannot be keyed on it.
// Not safe for concurrent use.
type Table struct {
	keys    []codec.Key
	counts  []uint64
	n       int
	growAt  int
	initial int
	maxLoad float64
	sum     uint64
}

// New creates a table sized from cfg.
func New(cfg Config) *Table {
	t := &Table{
		initial: max(cfg.InitialBuckets, minBuckets),
		maxLoad: cfg.MaxLoadFactor,
	}
	if t.maxLoad <= 0 || t.maxLoad >= 1 {
		t.maxLoad = DefaultMaxLoadFactor
	}
	t.alloc(t.initial)
	return t
}

func (t *Table) alloc(buckets int) {
	t.keys = make([]codec.Key, buckets)
	t.counts = make([]uint64, buckets)
	t.growAt = int(float64(buckets) * t.maxLoad)
	if t.growAt >= buckets {
		t.growAt = buckets - 1
	}
}

// hashKey hashes the raw bit pattern of both words.
func hashKey(k codec.Key) uint64 {
	var buf [codec.KeySize]byte
	k.PutBytes(buf[:])
	return xxh3.Hash(buf[:])
}

// slot returns the index holding key, or the empty slot where it belongs.
func (t *Table) slot(key codec.Key) int {
	size := len(t.keys)
	i := int(bits.FastRange32(hashKey(key), uint32(size)))
	for {
		if t.counts[i] == 0 || t.keys[i] == key {
			return i
		}
		i++
		if i == size {
			i = 0
		}
	}
}

// Add increments key by delta. A zero delta is ignored.
func (t *Table) Add(key codec.Key, delta uint64) {
	if delta == 0 {
		return
	}
	i := t.slot(key)
	if t.counts[i] == 0 {
		if t.n+1 > t.growAt {
			t.grow()
			i = t.slot(key)
		}
		t.keys[i] = key
		t.n++
	}
	t.counts[i] += delta
	t.sum += delta
}

// Inc increments key by one.
func (t *Table) Inc(key codec.Key) {
	t.Add(key, 1)
}

func (t *Table) grow() {
	oldKeys, oldCounts := t.keys, t.counts
	size := min(len(oldKeys)*2, maxBuckets)
	if size <= len(oldKeys) {
		panic("table: bucket limit reached")
	}
	t.alloc(size)
	for i, c := range oldCounts {
		if c == 0 {
			continue
		}
		j := t.slot(oldKeys[i])
		t.keys[j] = oldKeys[i]
		t.counts[j] = c
	}
}

// Get returns the count for key.
func (t *Table) Get(key codec.Key) (uint64, bool) {
	i := t.slot(key)
	if t.counts[i] == 0 {
		return 0, false
	}
	return t.counts[i], true
}

// Len returns the number of distinct keys.
func (t *Table) Len() int { return t.n }

// Sum returns the total of all counts.
func (t *Table) Sum() uint64 { return t.sum }

// Buckets returns the current slot count.
func (t *Table) Buckets() int { return len(t.keys) }

// All iterates over every (key, count) pair in slot order. The sequence can
// be ranged over more than once as long as the table is not modified.
func (t *Table) All() iter.Seq2[codec.Key, uint64] {
	return func(yield func(codec.Key, uint64) bool) {
		for i, c := range t.counts {
			if c == 0 {
				continue
			}
			if !yield(t.keys[i], c) {
				return
			}
		}
	}
}

// MergeInto adds every pair of t into dst.
func (t *Table) MergeInto(dst *Table) {
	for k, c := range t.All() {
		dst.Add(k, c)
	}
}

// Reset empties the table and shrinks it back to its initial size so a
// spilled aggregate releases its memory.
func (t *Table) Reset() {
	t.alloc(t.initial)
	t.n = 0
	t.sum = 0
}
