package natcalc

import (
	"fmt"

	natcalcerrors "github.com/katsys/natcalc/errors"
	intbits "github.com/katsys/natcalc/internal/bits"
	"github.com/katsys/natcalc/internal/inet"
)

// Range is an inclusive pool of host-order IPv4 addresses.
// A valid Range has Min <= Max; use NewRange to construct one from untrusted
// bounds.
type Range struct {
	Min uint32
	Max uint32
}

// NewRange validates the bounds of an address pool. Bounds are never
// swapped: Min > Max is a configuration error.
func NewRange(minAddr, maxAddr uint32) (Range, error) {
	if minAddr > maxAddr {
		return Range{}, fmt.Errorf("%w: %s > %s", natcalcerrors.ErrInvalidRange,
			inet.FormatAddr(minAddr), inet.FormatAddr(maxAddr))
	}
	return Range{Min: minAddr, Max: maxAddr}, nil
}

// Size returns the number of addresses in the pool, 1 to 2^32.
// The result needs 33 bits for the full IPv4 space.
func (r Range) Size() uint64 {
	return uint64(r.Max-r.Min) + 1
}

// Contains reports whether addr lies inside the pool.
func (r Range) Contains(addr uint32) bool {
	return r.Min <= addr && addr <= r.Max
}

// Map projects a hash value into the pool. See MapInto.
func (r Range) Map(hash uint32) uint32 {
	return MapInto(hash, r.Min, r.Max)
}

// String returns the pool as "min-max" in dotted-quad form.
func (r Range) String() string {
	return inet.FormatAddr(r.Min) + "-" + inet.FormatAddr(r.Max)
}

// MapInto projects hash into [rangeMin, rangeMax], returning
// rangeMin + floor(hash * poolSize / 2^32).
//
// poolSize is formed in 64 bits so that the full range (poolSize = 2^32)
// does not wrap to zero, and the product is 64 bits wide so it cannot
// overflow. The result is always inside the range; a single-address range
// always yields rangeMin.
//
// MapInto panics if rangeMin > rangeMax. Validate untrusted bounds with
// NewRange first.
func MapInto(hash, rangeMin, rangeMax uint32) uint32 {
	if rangeMin > rangeMax {
		panic("natcalc: MapInto: rangeMin > rangeMax")
	}
	poolSize := uint64(rangeMax-rangeMin) + 1
	return rangeMin + intbits.Scale32(hash, poolSize)
}
