// Package jhash implements the Bob Jenkins lookup2 hash in the exact form
// used by the Linux 2.6 kernel (include/linux/jhash.h).
//
// The functions are non-cryptographic. They exist to reproduce kernel
// decisions that depend on jhash, such as netfilter's persistent SNAT
// address selection, and must not be used where collision or preimage
// resistance matters.
//
// Three families are provided:
//
//   - Hash, HashN: arbitrary byte keys.
//   - Hash2, Hash2N: keys made of uint32 words.
//   - Hash3Words, Hash2Words, Hash1Word: exactly three, two or one word.
//
// The fixed-word family does not add a length term and mixes once, so
// Hash1Word(v, s) differs from Hash2([]uint32{v}, s). This matches the
// kernel and must be kept.
package jhash

import "encoding/binary"

// GoldenRatio is the initial value of the a and b accumulators.
// Kernels from 2.6.37 on use lookup3 with 0xdeadbeef instead.
const GoldenRatio = 0x9e3779b9

// chunkSize is the number of key bytes consumed per Mix round.
const chunkSize = 12

// Mix is the lookup2 avalanche step. Every operation wraps modulo 2^32 and
// each line updates one accumulator before the next line reads it.
func Mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= b
	a -= c
	a ^= c >> 13
	b -= c
	b -= a
	b ^= a << 8
	c -= a
	c -= b
	c ^= b >> 13
	a -= b
	a -= c
	a ^= c >> 12
	b -= c
	b -= a
	b ^= a << 16
	c -= a
	c -= b
	c ^= b >> 5
	a -= b
	a -= c
	a ^= c >> 3
	b -= c
	b -= a
	b ^= a << 10
	c -= a
	c -= b
	c ^= b >> 15
	return a, b, c
}

// Hash hashes an arbitrary byte key.
func Hash(key []byte, seed uint32) uint32 {
	a, b, c := uint32(GoldenRatio), uint32(GoldenRatio), seed
	k := key
	for len(k) >= chunkSize {
		a += binary.LittleEndian.Uint32(k[0:4])
		b += binary.LittleEndian.Uint32(k[4:8])
		c += binary.LittleEndian.Uint32(k[8:12])
		a, b, c = Mix(a, b, c)
		k = k[chunkSize:]
	}
	c += uint32(len(key))
	a, b, c = foldTail(a, b, c, k)
	_, _, c = Mix(a, b, c)
	return c
}

// HashN hashes the first length bytes of key.
// Precondition: length <= len(key).
func HashN(key []byte, length uint32, seed uint32) uint32 {
	return Hash(key[:length], seed)
}

// foldTail adds the final 0-11 bytes into the accumulators.
//
// Positions are applied from the last byte down to byte 0, so a tail of n
// bytes also performs every contribution of a tail of n-1 bytes. Byte 8
// lands at c<<8 because the low byte of c is occupied by the length.
func foldTail(a, b, c uint32, tail []byte) (uint32, uint32, uint32) {
	for i := len(tail) - 1; i >= 0; i-- {
		v := uint32(tail[i])
		switch {
		case i >= 8:
			c += v << (8 * (i - 7))
		case i >= 4:
			b += v << (8 * (i - 4))
		default:
			a += v << (8 * i)
		}
	}
	return a, b, c
}

// Hash2 hashes a key made of uint32 words.
func Hash2(key []uint32, seed uint32) uint32 {
	a, b, c := uint32(GoldenRatio), uint32(GoldenRatio), seed
	k := key
	for len(k) >= 3 {
		a += k[0]
		b += k[1]
		c += k[2]
		a, b, c = Mix(a, b, c)
		k = k[3:]
	}
	c += uint32(len(key)) * 4
	for i := len(k) - 1; i >= 0; i-- {
		if i == 1 {
			b += k[1]
		} else {
			a += k[0]
		}
	}
	_, _, c = Mix(a, b, c)
	return c
}

// Hash2N hashes the first length words of key.
// Precondition: length <= len(key).
func Hash2N(key []uint32, length uint32, seed uint32) uint32 {
	return Hash2(key[:length], seed)
}

// Hash3Words hashes exactly three words with a single Mix and no length term.
func Hash3Words(a, b, c, seed uint32) uint32 {
	a += GoldenRatio
	b += GoldenRatio
	c += seed
	_, _, c = Mix(a, b, c)
	return c
}

// Hash2Words is Hash3Words with the third word set to zero.
func Hash2Words(a, b, seed uint32) uint32 {
	return Hash3Words(a, b, 0, seed)
}

// Hash1Word is Hash3Words with the second and third words set to zero.
func Hash1Word(a, seed uint32) uint32 {
	return Hash3Words(a, 0, 0, seed)
}
