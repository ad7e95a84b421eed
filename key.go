package natcalc

import (
	"encoding/binary"
	"fmt"
	"strings"

	natcalcerrors "github.com/katsys/natcalc/errors"
	"github.com/katsys/natcalc/internal/inet"
)

// KeyOrder selects how a host-order address becomes the hash key.
//
// The kernel hashes the source address as stored in the packet tuple: the
// four network-order bytes reinterpreted as a native uint32. On a
// little-endian kernel that word is the byte-swapped host-order address; on
// a big-endian kernel it equals the host-order address.
// This is stored in the table header.
type KeyOrder uint8

const (
	// KeyLittleEndian matches x86, arm64 and other little-endian kernels.
	KeyLittleEndian KeyOrder = 0

	// KeyBigEndian matches big-endian kernels (s390x, big-endian MIPS/PPC).
	KeyBigEndian KeyOrder = 1
)

// String returns the byte order name.
func (o KeyOrder) String() string {
	switch o {
	case KeyLittleEndian:
		return "little"
	case KeyBigEndian:
		return "big"
	default:
		return "unknown"
	}
}

// Valid reports whether o is a known byte order.
func (o KeyOrder) Valid() bool {
	return o == KeyLittleEndian || o == KeyBigEndian
}

// ParseKeyOrder accepts "little" or "big" (case-insensitive).
func ParseKeyOrder(s string) (KeyOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "little", "le", "":
		return KeyLittleEndian, nil
	case "big", "be":
		return KeyBigEndian, nil
	default:
		return 0, fmt.Errorf("%w: %q", natcalcerrors.ErrInvalidKeyOrder, s)
	}
}

// Key returns the word the kernel would hash for addr.
func (o KeyOrder) Key(addr uint32) uint32 {
	if o == KeyBigEndian {
		return addr
	}
	b := inet.Bytes(addr)
	return binary.LittleEndian.Uint32(b[:])
}
