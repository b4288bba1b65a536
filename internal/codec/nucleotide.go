package codec

import (
	"fmt"

	kmerrors "github.com/tamirms/kmercount/errors"
)

const (
	nucleotideBits    = 3
	nucleotideMask    = 1<<nucleotideBits - 1
	nucleotideLoSyms  = 21 // 63 bits; the top bit of Lo stays zero
	nucleotideHiSyms  = 10
	nucleotideMaxK    = nucleotideLoSyms + nucleotideHiSyms
	nucleotideInvalid = 0xFF
)

// nucleotideLetters maps a symbol index back to its (lowercase) letter.
const nucleotideLetters = "acgtn"

var nucleotideIndex = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = nucleotideInvalid
	}
	for i, c := range []byte("ACGTN") {
		t[c] = byte(i)
		t[c+('a'-'A')] = byte(i)
	}
	return t
}()

// Nucleotide is the 3-bit codec for {A,C,G,T,N}.
type Nucleotide struct{}

func (Nucleotide) Name() string { return "nucleotide" }
func (Nucleotide) Symbols() int { return len(nucleotideLetters) }
func (Nucleotide) MaxK() int    { return nucleotideMaxK }

func (Nucleotide) Encode(window []byte, k int) (Key, error) {
	var key Key
	for i := 0; i < k; i++ {
		idx := nucleotideIndex[window[i]]
		if idx == nucleotideInvalid {
			return Key{}, invalidSymbol(window[i])
		}
		key = nucleotidePut(key, i, idx)
	}
	return key, nil
}

func (Nucleotide) Shift(key Key, k int, next byte) (Key, error) {
	idx := nucleotideIndex[next]
	if idx == nucleotideInvalid {
		return Key{}, invalidSymbol(next)
	}
	// Symbol 21 (bits 0..2 of Hi) moves into the top slot of Lo (bits 60..62).
	key.Lo = key.Lo>>nucleotideBits | (key.Hi&nucleotideMask)<<((nucleotideLoSyms-1)*nucleotideBits)
	key.Hi >>= nucleotideBits
	return nucleotidePut(key, k-1, idx), nil
}

func (Nucleotide) Decode(key Key, k int) string {
	out := make([]byte, k)
	for i := range k {
		var idx uint64
		if i < nucleotideLoSyms {
			idx = key.Lo >> (i * nucleotideBits) & nucleotideMask
		} else {
			idx = key.Hi >> ((i - nucleotideLoSyms) * nucleotideBits) & nucleotideMask
		}
		out[i] = nucleotideLetters[idx]
	}
	return string(out)
}

func nucleotidePut(key Key, pos int, idx byte) Key {
	if pos < nucleotideLoSyms {
		key.Lo |= uint64(idx) << (pos * nucleotideBits)
	} else {
		key.Hi |= uint64(idx) << ((pos - nucleotideLoSyms) * nucleotideBits)
	}
	return key
}

func invalidSymbol(b byte) error {
	return fmt.Errorf("%w: %q (0x%02x)", kmerrors.ErrInvalidSymbol, b, b)
}
