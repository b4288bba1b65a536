// Package bits provides low-level integer primitives used for table slot
// mapping and capacity policies.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// Unlike masking, n does not have to be a power of two, so a table can be
// sized exactly as requested by a caller's hint.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// SaturatingPow returns base^exp, clamped to limit. It never overflows:
// multiplication stops as soon as the running product would exceed limit.
func SaturatingPow(base, exp, limit uint64) uint64 {
	result := uint64(1)
	for range exp {
		hi, lo := bits.Mul64(result, base)
		if hi != 0 || lo > limit {
			return limit
		}
		result = lo
	}
	if result > limit {
		return limit
	}
	return result
}
