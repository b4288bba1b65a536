package codec

const (
	byteBits   = 8
	byteLoSyms = 8
	byteMaxK   = 16
)

// Bytes is the 8-bit codec: every byte value is a symbol and windows are
// case-sensitive.
type Bytes struct{}

func (Bytes) Name() string { return "bytes" }
func (Bytes) Symbols() int { return 256 }
func (Bytes) MaxK() int    { return byteMaxK }

func (Bytes) Encode(window []byte, k int) (Key, error) {
	var key Key
	for i := 0; i < k; i++ {
		key = bytePut(key, i, window[i])
	}
	return key, nil
}

func (Bytes) Shift(key Key, k int, next byte) (Key, error) {
	key.Lo = key.Lo>>byteBits | (key.Hi&0xFF)<<((byteLoSyms-1)*byteBits)
	key.Hi >>= byteBits
	return bytePut(key, k-1, next), nil
}

func (Bytes) Decode(key Key, k int) string {
	out := make([]byte, k)
	for i := range k {
		if i < byteLoSyms {
			out[i] = byte(key.Lo >> (i * byteBits))
		} else {
			out[i] = byte(key.Hi >> ((i - byteLoSyms) * byteBits))
		}
	}
	return string(out)
}

func bytePut(key Key, pos int, b byte) Key {
	if pos < byteLoSyms {
		key.Lo |= uint64(b) << (pos * byteBits)
	} else {
		key.Hi |= uint64(b) << ((pos - byteLoSyms) * byteBits)
	}
	return key
}
