// Package bits provides low-level bit manipulation primitives.
package bits

// MaxScale is the largest n accepted by Scale32: a pool spanning every
// IPv4 address.
const MaxScale = 1 << 32

// Scale32 maps a 32-bit hash uniformly to [0, n) for 1 <= n <= 2^32,
// returning floor(hash * n / 2^32).
//
// This is the "fastrange" multiply-high reduction. The product is formed in
// 64 bits: hash < 2^32 and n <= 2^32 keep it below 2^64, so n = 2^32, which
// does not fit in a uint32, is handled without wrapping to zero.
// n = 0 returns 0.
func Scale32(hash uint32, n uint64) uint32 {
	if n > MaxScale {
		panic("bits: Scale32: n exceeds 2^32")
	}
	return uint32((uint64(hash) * n) >> 32)
}
