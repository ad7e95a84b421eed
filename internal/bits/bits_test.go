package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomScale returns n in [1, 2^32].
func randomScale(rng *rand.Rand) uint64 {
	return rng.Uint64N(MaxScale) + 1
}

// TestScale32Monotonicity verifies that for a fixed n,
// Scale32 is monotone: h1 < h2 implies Scale32(h1,n) <= Scale32(h2,n).
func TestScale32Monotonicity(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		n := randomScale(rng)
		h1 := rng.Uint32()
		h2 := rng.Uint32()
		if h1 > h2 {
			h1, h2 = h2, h1
		}

		r1 := Scale32(h1, n)
		r2 := Scale32(h2, n)
		if r1 > r2 {
			t.Fatalf("iter %d: monotonicity violated: Scale32(0x%X, %d)=%d > Scale32(0x%X, %d)=%d",
				i, h1, n, r1, h2, n, r2)
		}
	}
}

// TestScale32Range verifies that the result is always in [0, n).
func TestScale32Range(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		n := randomScale(rng)
		h := rng.Uint32()

		got := Scale32(h, n)
		if uint64(got) >= n {
			t.Fatalf("iter %d: Scale32(0x%X, %d)=%d >= %d", i, h, n, got, n)
		}
	}
}

// TestScale32EdgeCases tests deterministic edge cases:
// n=1->0, n=2^32->identity, h=0->0, h=MaxUint32->n-1.
func TestScale32EdgeCases(t *testing.T) {
	// n=0 and n=1 always return 0
	for _, h := range []uint32{0, 1, math.MaxUint32, 0xDEADBEEF} {
		if got := Scale32(h, 0); got != 0 {
			t.Errorf("Scale32(0x%X, 0) = %d, want 0", h, got)
		}
		if got := Scale32(h, 1); got != 0 {
			t.Errorf("Scale32(0x%X, 1) = %d, want 0", h, got)
		}
	}

	// n=2^32 is the identity: the pool size must not wrap to zero
	for _, h := range []uint32{0, 1, 0x524c4a0d, math.MaxUint32 - 1, math.MaxUint32} {
		if got := Scale32(h, MaxScale); got != h {
			t.Errorf("Scale32(0x%X, 2^32) = 0x%X, want 0x%X", h, got, h)
		}
	}

	// n=MaxUint32 -> result < MaxUint32
	if got := Scale32(math.MaxUint32, math.MaxUint32); got != math.MaxUint32-1 {
		t.Errorf("Scale32(MaxUint32, MaxUint32) = %d, want %d", got, uint32(math.MaxUint32-1))
	}

	// h=0 always maps to 0 for any n
	for n := uint64(1); n <= 100; n++ {
		if got := Scale32(0, n); got != 0 {
			t.Errorf("Scale32(0, %d) = %d, want 0", n, got)
		}
	}

	// h=MaxUint32 maps to n-1 for any n >= 2
	for n := uint64(2); n <= 100; n++ {
		if got := Scale32(math.MaxUint32, n); uint64(got) != n-1 {
			t.Errorf("Scale32(MaxUint32, %d) = %d, want %d", n, got, n-1)
		}
	}
}

// TestScale32Buckets checks that each of n buckets receives an equal share
// of the hash space, give or take one.
func TestScale32Buckets(t *testing.T) {
	for _, n := range []uint64{2, 3, 4, 7, 256} {
		for k := uint64(0); k < n; k++ {
			start := uint32((k*MaxScale + n - 1) / n) // first h with floor(h*n/2^32) == k
			if got := Scale32(start, n); uint64(got) != k {
				t.Errorf("n=%d: Scale32(0x%X)=%d, want %d", n, start, got, k)
			}
			if start > 0 {
				if got := Scale32(start-1, n); uint64(got) != k-1 {
					t.Errorf("n=%d: Scale32(0x%X)=%d, want %d", n, start-1, got, k-1)
				}
			}
		}
	}
}

func TestScale32PanicsAboveMax(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Scale32(h, 2^32+1) did not panic")
		}
	}()
	Scale32(1, MaxScale+1)
}
