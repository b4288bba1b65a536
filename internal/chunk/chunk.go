// Package chunk provides the byte ranges a counter scans.
//
// A Chunk is a borrowed view over a buffer owned elsewhere (a block from the
// source). A Crossing owns a freshly built buffer holding the bytes around a
// block boundary and must be released exactly once.
package chunk

import (
	"sync"
	"sync/atomic"
)

// Chunk is a non-owning view [begin, end) over a larger buffer. It must not
// outlive the buffer it references.
type Chunk struct {
	data []byte
}

// View borrows b as a Chunk.
func View(b []byte) Chunk {
	return Chunk{data: b}
}

// Bytes returns the viewed bytes.
func (c Chunk) Bytes() []byte { return c.data }

// Len returns the chunk length in bytes.
func (c Chunk) Len() int { return len(c.data) }

// Windows returns how many k-long windows fit in the chunk.
func (c Chunk) Windows(k int) int {
	return max(len(c.data)-k+1, 0)
}

// crossingPool recycles crossing buffers between counters.
var crossingPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64)
		return &b
	},
}

// Crossing is an owned buffer spanning the boundary between two chunks.
type Crossing struct {
	buf      *[]byte
	released atomic.Bool
}

// Cross builds the crossing section of two adjacent chunks:
// the last k-1 bytes of c1 followed by the first min(k-1, c2.Len()) bytes of c2.
// Counting its k-long windows yields exactly the k-mers that start in c1 and
// end in c2.
//
// Panics if c1 is shorter than k-1 bytes; callers validate block sizes first.
func Cross(c1, c2 Chunk, k int) *Crossing {
	tail := k - 1
	if tail > c1.Len() {
		panic("chunk: first chunk shorter than k-1")
	}
	head := min(tail, c2.Len())

	bp := crossingPool.Get().(*[]byte)
	b := (*bp)[:0]
	b = append(b, c1.data[c1.Len()-tail:]...)
	b = append(b, c2.data[:head]...)
	*bp = b
	return &Crossing{buf: bp}
}

// Chunk returns a view of the crossing bytes. The view is invalid after Release.
func (x *Crossing) Chunk() Chunk {
	if x.released.Load() {
		panic("chunk: crossing used after release")
	}
	return Chunk{data: *x.buf}
}

// Release returns the buffer to the pool. Releasing twice panics.
func (x *Crossing) Release() {
	if !x.released.CompareAndSwap(false, true) {
		panic("chunk: crossing released twice")
	}
	*x.buf = (*x.buf)[:0]
	crossingPool.Put(x.buf)
	x.buf = nil
}
