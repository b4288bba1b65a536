package table

import (
	"math/rand/v2"
	"testing"

	"github.com/tamirms/kmercount/internal/codec"
)

func TestAddAndGet(t *testing.T) {
	tbl := New(Config{InitialBuckets: 4})
	zero := codec.Key{}
	other := codec.Key{Lo: 7, Hi: 1}

	if _, ok := tbl.Get(zero); ok {
		t.Fatal("zero key reported present in an empty table")
	}

	tbl.Inc(zero)
	tbl.Inc(zero)
	tbl.Add(other, 5)
	tbl.Add(other, 0)

	if got, ok := tbl.Get(zero); !ok || got != 2 {
		t.Errorf("Get(zero) = %d/%v, want 2", got, ok)
	}
	if got, ok := tbl.Get(other); !ok || got != 5 {
		t.Errorf("Get(other) = %d/%v, want 5", got, ok)
	}
	if tbl.Len() != 2 || tbl.Sum() != 7 {
		t.Errorf("Len=%d Sum=%d, want 2 and 7", tbl.Len(), tbl.Sum())
	}
}

func TestGrowthPreservesCounts(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	tbl := New(Config{InitialBuckets: 17, MaxLoadFactor: 0.5})
	want := make(map[codec.Key]uint64)

	for range 20000 {
		k := codec.Key{Lo: rng.Uint64N(3000), Hi: rng.Uint64N(2)}
		tbl.Inc(k)
		want[k]++
	}

	if tbl.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", tbl.Len(), len(want))
	}
	if tbl.Buckets() <= 17 {
		t.Errorf("table never grew: %d buckets", tbl.Buckets())
	}
	if load := float64(tbl.Len()) / float64(tbl.Buckets()); load > 0.5 {
		t.Errorf("load factor %.3f above 0.5", load)
	}

	var sum uint64
	seen := 0
	for k, c := range tbl.All() {
		if want[k] != c {
			t.Fatalf("key %+v: count %d, want %d", k, c, want[k])
		}
		sum += c
		seen++
	}
	if seen != len(want) {
		t.Errorf("All yielded %d keys, want %d", seen, len(want))
	}
	if sum != 20000 || tbl.Sum() != 20000 {
		t.Errorf("yielded sum %d, Sum() %d, want 20000", sum, tbl.Sum())
	}
}

func TestInvalidLoadFactorFallsBack(t *testing.T) {
	for _, f := range []float64{0, -1, 1, 12} {
		tbl := New(Config{InitialBuckets: 100, MaxLoadFactor: f})
		if tbl.maxLoad != DefaultMaxLoadFactor {
			t.Errorf("MaxLoadFactor %g: got %g, want %g", f, tbl.maxLoad, DefaultMaxLoadFactor)
		}
	}
}

func TestResetShrinks(t *testing.T) {
	tbl := New(Config{InitialBuckets: 32})
	for i := range 1000 {
		tbl.Inc(codec.Key{Lo: uint64(i)})
	}
	if tbl.Buckets() <= 32 {
		t.Fatalf("table never grew: %d buckets", tbl.Buckets())
	}

	tbl.Reset()
	if tbl.Len() != 0 || tbl.Sum() != 0 || tbl.Buckets() != 32 {
		t.Errorf("after Reset: Len=%d Sum=%d Buckets=%d", tbl.Len(), tbl.Sum(), tbl.Buckets())
	}
	for range tbl.All() {
		t.Fatal("reset table must be empty")
	}
}

func TestMergeInto(t *testing.T) {
	a := New(Config{})
	b := New(Config{})
	a.Add(codec.Key{Lo: 1}, 3)
	a.Add(codec.Key{Lo: 2}, 1)
	b.Add(codec.Key{Lo: 2}, 4)

	a.MergeInto(b)
	if got, _ := b.Get(codec.Key{Lo: 2}); got != 5 {
		t.Errorf("shared key = %d, want 5", got)
	}
	if got, _ := b.Get(codec.Key{Lo: 1}); got != 3 {
		t.Errorf("new key = %d, want 3", got)
	}
	if b.Sum() != 8 {
		t.Errorf("Sum = %d, want 8", b.Sum())
	}
}
