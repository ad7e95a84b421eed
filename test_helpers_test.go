package natcalc

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/katsys/natcalc/internal/inet"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG generator seeded from the test name, so every
// test sees its own reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// addr parses a dotted quad, failing the test on malformed input.
func addr(t testing.TB, s string) uint32 {
	t.Helper()
	a, ok := inet.ParseAddrStrict(s)
	if !ok {
		t.Fatalf("bad test address %q", s)
	}
	return a
}

// mustPool creates a pool from dotted-quad bounds.
func mustPool(t testing.TB, lo, hi string, opts ...PoolOption) *Pool {
	t.Helper()
	p, err := NewPool(addr(t, lo), addr(t, hi), opts...)
	if err != nil {
		t.Fatalf("NewPool(%s, %s): %v", lo, hi, err)
	}
	return p
}

// buildAndOpen builds a table in a temp dir and opens it. The table is
// closed when the test ends.
func buildAndOpen(t testing.TB, p *Pool, first uint32, count uint64, opts ...TableOption) (*Table, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.natt")
	if err := BuildTable(context.Background(), path, p, first, count, opts...); err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	tbl, err := OpenTable(path)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl, path
}
