package jhash

import (
	"encoding/binary"
	"hash"
)

// Size is the size of a jhash checksum in bytes.
const Size = 4

var _ hash.Hash32 = (*Digest)(nil)

// Digest computes Hash incrementally. Full 12-byte chunks are mixed as soon
// as they are complete; the tail and the total length are folded in by
// Sum32, which leaves the digest unchanged.
//
// A Digest is not safe for concurrent use.
type Digest struct {
	seed    uint32
	a, b, c uint32
	buf     [chunkSize]byte
	nbuf    int
	length  uint32 // total bytes written, modulo 2^32 like the kernel's u32 length
}

// New returns a Digest whose Sum32 equals Hash(data, seed) for all data written.
func New(seed uint32) *Digest {
	d := &Digest{seed: seed}
	d.Reset()
	return d
}

// Reset restores the digest to its initial state, keeping the seed.
func (d *Digest) Reset() {
	d.a, d.b, d.c = GoldenRatio, GoldenRatio, d.seed
	d.nbuf = 0
	d.length = 0
}

// Size returns the number of bytes Sum appends.
func (d *Digest) Size() int { return Size }

// BlockSize returns the chunk size of the mixing loop.
func (d *Digest) BlockSize() int { return chunkSize }

// Write adds p to the running hash. It never returns an error.
func (d *Digest) Write(p []byte) (int, error) {
	n := len(p)
	d.length += uint32(n)

	if d.nbuf > 0 {
		c := copy(d.buf[d.nbuf:], p)
		d.nbuf += c
		p = p[c:]
		if d.nbuf < chunkSize {
			return n, nil
		}
		d.mixChunk(d.buf[:])
		d.nbuf = 0
	}
	for len(p) >= chunkSize {
		d.mixChunk(p[:chunkSize])
		p = p[chunkSize:]
	}
	d.nbuf = copy(d.buf[:], p)
	return n, nil
}

func (d *Digest) mixChunk(k []byte) {
	d.a += binary.LittleEndian.Uint32(k[0:4])
	d.b += binary.LittleEndian.Uint32(k[4:8])
	d.c += binary.LittleEndian.Uint32(k[8:12])
	d.a, d.b, d.c = Mix(d.a, d.b, d.c)
}

// Sum32 returns the hash of everything written so far.
func (d *Digest) Sum32() uint32 {
	a, b, c := d.a, d.b, d.c+d.length
	a, b, c = foldTail(a, b, c, d.buf[:d.nbuf])
	_, _, c = Mix(a, b, c)
	return c
}

// Sum appends the big-endian checksum to b.
func (d *Digest) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, d.Sum32())
}
