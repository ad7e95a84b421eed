package natcalc

import (
	"context"
	"errors"
	"math"
	"testing"

	natcalcerrors "github.com/katsys/natcalc/errors"
	"github.com/katsys/natcalc/jhash"
)

// TestPoolKnownMappings pins mappings computed with the kernel jhash.h code.
func TestPoolKnownMappings(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi string
		opts   []PoolOption
		src    string
		want   string
	}{
		{"quad/10.0.0.1", "10.0.0.0", "10.0.0.3", nil, "10.0.0.1", "10.0.0.1"},
		{"quad/192.168.1.1", "10.0.0.0", "10.0.0.3", nil, "192.168.1.1", "10.0.0.1"},
		{"quad/172.16.5.4", "10.0.0.0", "10.0.0.3", nil, "172.16.5.4", "10.0.0.2"},
		{"quad/0.0.0.0", "10.0.0.0", "10.0.0.3", nil, "0.0.0.0", "10.0.0.2"},
		{"quad/8.8.8.8", "10.0.0.0", "10.0.0.3", nil, "8.8.8.8", "10.0.0.1"},
		{"cgnat/10.0.0.1", "100.64.0.0", "100.64.255.255", nil, "10.0.0.1", "100.64.82.76"},
		{"cgnat/192.168.1.1", "100.64.0.0", "100.64.255.255", nil, "192.168.1.1", "100.64.103.168"},
		{"cgnat/255.255.255.255", "100.64.0.0", "100.64.255.255", nil, "255.255.255.255", "100.64.100.119"},
		{"p256/192.168.1.1", "100.64.0.0", "100.64.0.255", nil, "192.168.1.1", "100.64.0.103"},
		{"p256/172.16.5.4", "100.64.0.0", "100.64.0.255", nil, "172.16.5.4", "100.64.0.130"},
		{"big/192.168.1.1", "100.64.0.0", "100.64.0.255", []PoolOption{WithKeyOrder(KeyBigEndian)}, "192.168.1.1", "100.64.0.248"},
		{"big/10.9.8.7", "100.64.0.0", "100.64.0.255", []PoolOption{WithKeyOrder(KeyBigEndian)}, "10.9.8.7", "100.64.0.92"},
		{"seed/192.168.1.1", "100.64.0.0", "100.64.0.255", []PoolOption{WithSeed(12345)}, "192.168.1.1", "100.64.0.84"},
		{"seed/10.9.8.7", "100.64.0.0", "100.64.0.255", []PoolOption{WithSeed(12345)}, "10.9.8.7", "100.64.0.141"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPool(t, tt.lo, tt.hi, tt.opts...)
			if got := p.Map(addr(t, tt.src)); got != addr(t, tt.want) {
				t.Errorf("Map(%s) = 0x%08x, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestPoolHashKnownValues(t *testing.T) {
	p := mustPool(t, "10.0.0.0", "10.0.0.3")
	tests := []struct {
		src  string
		want uint32
	}{
		{"10.0.0.1", 0x524c4a0d},
		{"192.168.1.1", 0x67a810ce},
		{"0.0.0.0", 0xbd49d10d},
		{"255.255.255.255", 0x6477d91b},
	}
	for _, tt := range tests {
		if got := p.Hash(addr(t, tt.src)); got != tt.want {
			t.Errorf("Hash(%s) = 0x%08x, want 0x%08x", tt.src, got, tt.want)
		}
	}
}

// TestPoolUsesTwoWordFastPath checks the hash is the two-word entry point
// with a zero second word, which equals the three-word primitive.
func TestPoolUsesTwoWordFastPath(t *testing.T) {
	rng := newTestRNG(t)
	p := mustPool(t, "0.0.0.0", "255.255.255.255", WithSeed(7))
	for range 1000 {
		a := rng.Uint32()
		key := KeyLittleEndian.Key(a)
		if got, want := p.Hash(a), jhash.Hash3Words(key, 0, 0, 7); got != want {
			t.Fatalf("Hash(0x%08x) = 0x%08x, want 0x%08x", a, got, want)
		}
	}
}

func TestPoolMapConn(t *testing.T) {
	p := mustPool(t, "100.64.0.0", "100.64.0.255")
	tests := []struct{ src, dst, want string }{
		{"192.168.1.1", "8.8.8.8", "100.64.0.232"},
		{"172.16.5.4", "1.1.1.1", "100.64.0.244"},
		{"10.9.8.7", "93.184.216.34", "100.64.0.15"},
	}
	for _, tt := range tests {
		if got := p.MapConn(addr(t, tt.src), addr(t, tt.dst)); got != addr(t, tt.want) {
			t.Errorf("MapConn(%s, %s) = 0x%08x, want %s", tt.src, tt.dst, got, tt.want)
		}
	}
	// A zero destination is the persistent mapping.
	src := addr(t, "192.168.1.1")
	if p.MapConn(src, 0) != p.Map(src) {
		t.Error("MapConn(src, 0) != Map(src)")
	}
}

// TestPoolSingleAddress: every input maps to the only pool address.
func TestPoolSingleAddress(t *testing.T) {
	rng := newTestRNG(t)
	p := mustPool(t, "10.0.0.1", "10.0.0.1")
	want := addr(t, "10.0.0.1")
	for _, a := range []uint32{0, math.MaxUint32, want} {
		if got := p.Map(a); got != want {
			t.Errorf("Map(0x%08x) = 0x%08x, want 0x%08x", a, got, want)
		}
	}
	for range 10000 {
		a := rng.Uint32()
		if got := p.Map(a); got != want {
			t.Fatalf("Map(0x%08x) = 0x%08x, want 0x%08x", a, got, want)
		}
	}
}

// TestPoolFourAddressSpread feeds 1000 consecutive inputs into a 4-address
// pool; every address must be used in roughly equal share.
func TestPoolFourAddressSpread(t *testing.T) {
	p := mustPool(t, "10.0.0.0", "10.0.0.3")
	first := addr(t, "192.168.0.0")
	counts := make(map[uint32]int)
	for i := range uint32(1000) {
		counts[p.Map(first+i)]++
	}
	if len(counts) != 4 {
		t.Fatalf("used %d pool addresses, want 4: %v", len(counts), counts)
	}
	// Reference: 273 241 222 264
	want := map[string]int{"10.0.0.0": 273, "10.0.0.1": 241, "10.0.0.2": 222, "10.0.0.3": 264}
	for s, n := range want {
		if got := counts[addr(t, s)]; got != n {
			t.Errorf("count[%s] = %d, want %d", s, got, n)
		}
		if got := counts[addr(t, s)]; got < 200 || got > 300 {
			t.Errorf("count[%s] = %d, outside [200, 300]", s, got)
		}
	}
}

func TestNewPoolErrors(t *testing.T) {
	if _, err := NewPool(10, 9); !errors.Is(err, natcalcerrors.ErrInvalidRange) {
		t.Errorf("NewPool(10, 9) error = %v, want ErrInvalidRange", err)
	}
	if _, err := NewPool(0, 9, WithKeyOrder(KeyOrder(7))); !errors.Is(err, natcalcerrors.ErrInvalidKeyOrder) {
		t.Errorf("NewPool with key order 7 error = %v, want ErrInvalidKeyOrder", err)
	}
	p, err := NewPool(0, 9, WithSeed(3), WithKeyOrder(KeyBigEndian))
	if err != nil {
		t.Fatal(err)
	}
	if p.Seed() != 3 || p.KeyOrder() != KeyBigEndian || p.Range() != (Range{0, 9}) {
		t.Errorf("accessors = (%d, %v, %v)", p.Seed(), p.KeyOrder(), p.Range())
	}
}

func TestPoolMapAll(t *testing.T) {
	rng := newTestRNG(t)
	p := mustPool(t, "100.64.0.0", "100.64.3.255")
	addrs := make([]uint32, 3*mapChunkSize+17)
	for i := range addrs {
		addrs[i] = rng.Uint32()
	}

	for _, workers := range []int{0, 1, 4, 16} {
		got, err := p.MapAll(context.Background(), addrs, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(got) != len(addrs) {
			t.Fatalf("workers=%d: len=%d, want %d", workers, len(got), len(addrs))
		}
		for i, a := range addrs {
			if got[i] != p.Map(a) {
				t.Fatalf("workers=%d: out[%d]=0x%08x, want 0x%08x", workers, i, got[i], p.Map(a))
			}
		}
	}

	empty, err := p.MapAll(context.Background(), nil, 4)
	if err != nil || len(empty) != 0 {
		t.Errorf("MapAll(nil) = (%v, %v)", empty, err)
	}
}

func TestPoolMapAllCanceled(t *testing.T) {
	p := mustPool(t, "10.0.0.0", "10.0.0.3")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	addrs := make([]uint32, 4*mapChunkSize)
	for _, workers := range []int{1, 4} {
		if _, err := p.MapAll(ctx, addrs, workers); !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: err = %v, want context.Canceled", workers, err)
		}
	}
}

func TestPoolConcurrentUse(t *testing.T) {
	p := mustPool(t, "10.0.0.0", "10.0.0.255")
	done := make(chan uint32, 8)
	for range 8 {
		go func() {
			var x uint32
			for i := range uint32(10000) {
				x ^= p.Map(i)
			}
			done <- x
		}()
	}
	first := <-done
	for range 7 {
		if x := <-done; x != first {
			t.Fatal("concurrent Map calls disagree")
		}
	}
}
