// Package codec packs fixed-length symbol windows into two-word keys.
//
// Two alphabets are supported. The nucleotide codec stores 3 bits per symbol
// from {A,C,G,T,N} (case-insensitive): symbols 0..20 occupy bits i*3 of Lo
// (63 bits), symbols 21..30 occupy bits (i-21)*3 of Hi. The byte codec stores
// 8 bits per arbitrary byte: 0..7 in Lo, 8..15 in Hi.
//
// Keys compare and hash on their raw bit pattern; decoding is only needed
// when a result is reported.
package codec

import (
	"encoding/binary"
	"fmt"

	kmerrors "github.com/tamirms/kmercount/errors"
)

// KeySize is the serialized size of a Key in bytes.
const KeySize = 16

// Key is an encoded k-mer. The zero Key is a valid encoding (all-A for the
// nucleotide codec), so tables must not use it as an empty marker.
type Key struct {
	Lo uint64
	Hi uint64
}

// PutBytes writes the key little-endian into dst[0:16].
func (k Key) PutBytes(dst []byte) {
	_ = dst[KeySize-1]
	binary.LittleEndian.PutUint64(dst[0:8], k.Lo)
	binary.LittleEndian.PutUint64(dst[8:16], k.Hi)
}

// KeyFromBytes reads a key written by PutBytes.
func KeyFromBytes(src []byte) Key {
	_ = src[KeySize-1]
	return Key{
		Lo: binary.LittleEndian.Uint64(src[0:8]),
		Hi: binary.LittleEndian.Uint64(src[8:16]),
	}
}

// Codec converts between symbol windows and keys for one alphabet.
type Codec interface {
	// Name identifies the alphabet ("nucleotide", "bytes").
	Name() string
	// Symbols is the alphabet size, used by capacity policies.
	Symbols() int
	// MaxK is the longest window the codec can pack.
	MaxK() int
	// Encode packs window[:k]. len(window) must be at least k.
	Encode(window []byte, k int) (Key, error)
	// Shift drops the first symbol of a k-long key and appends next.
	Shift(key Key, k int, next byte) (Key, error)
	// Decode is the inverse of Encode.
	Decode(key Key, k int) string
}

// CheckK validates k against the codec capacity.
func CheckK(c Codec, k int) error {
	if k < 1 {
		return kmerrors.ErrInvalidK
	}
	if k > c.MaxK() {
		return fmt.Errorf("%w: k=%d, %s codec holds at most %d symbols",
			kmerrors.ErrCapacityViolation, k, c.Name(), c.MaxK())
	}
	return nil
}
