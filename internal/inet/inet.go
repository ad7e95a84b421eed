// Package inet converts between IPv4 text and host-order uint32 addresses.
//
// Parsing follows the BSD inet_aton grammar accepted by inet_addr(3):
//
//	a.b.c.d   each part 8 bits
//	a.b.c     c is 16 bits
//	a.b       b is 24 bits
//	a         32 bits
//
// Each part may be decimal, octal (leading 0) or hexadecimal (leading 0x).
// Parsing stops at the first whitespace character; anything after it is
// ignored.
package inet

import (
	"fmt"
	"math"
	"net/netip"
	"strings"

	natcalcerrors "github.com/katsys/natcalc/errors"
)

// ParseAddr parses s into a host-order address. Malformed input yields 0
// (0.0.0.0), which callers treat as an ordinary address.
func ParseAddr(s string) uint32 {
	addr, _ := ParseAddrStrict(s)
	return addr
}

// ParseAddrStrict parses s into a host-order address and reports whether s
// was well formed.
func ParseAddrStrict(s string) (uint32, bool) {
	var parts [3]uint32
	nparts := 0
	i := 0
	var val uint64
	for {
		if i >= len(s) || !isDigit(s[i]) {
			return 0, false
		}
		var ok bool
		val, i, ok = parseNumber(s, i)
		if !ok {
			return 0, false
		}
		if i < len(s) && s[i] == '.' {
			if nparts == len(parts) || val > 0xff {
				return 0, false
			}
			parts[nparts] = uint32(val)
			nparts++
			i++
			continue
		}
		break
	}
	if i < len(s) && !isSpace(s[i]) {
		return 0, false
	}

	// The last part fills every bit not taken by the dotted prefix.
	limit := uint64(math.MaxUint32) >> (8 * nparts)
	if val > limit {
		return 0, false
	}
	addr := uint32(val)
	for j := 0; j < nparts; j++ {
		addr |= parts[j] << (24 - 8*j)
	}
	return addr, true
}

// parseNumber reads one part starting at s[i] with strtoul base-0 rules and
// returns the value and the index of the first unread byte.
func parseNumber(s string, i int) (uint64, int, bool) {
	base := uint64(10)
	if s[i] == '0' {
		base = 8
		i++
		if i+1 < len(s) && (s[i] == 'x' || s[i] == 'X') && isHexDigit(s[i+1]) {
			base = 16
			i++
		}
	}
	var val uint64
	for ; i < len(s); i++ {
		d, ok := digitValue(s[i])
		if !ok || d >= base {
			break
		}
		val = val*base + d
		if val > math.MaxUint32 {
			return 0, i, false
		}
	}
	return val, i, true
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case '0' <= c && c <= '9':
		return uint64(c - '0'), true
	case 'a' <= c && c <= 'f':
		return uint64(c-'a') + 10, true
	case 'A' <= c && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	_, ok := digitValue(c)
	return ok
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// FormatAddr renders a host-order address in dotted-quad form.
func FormatAddr(addr uint32) string {
	return netip.AddrFrom4(Bytes(addr)).String()
}

// Bytes returns the address in network byte order.
func Bytes(addr uint32) [4]byte {
	return [4]byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
}

// ParseSpan parses a contiguous range of input addresses, either a CIDR
// prefix ("10.0.0.0/30") or an inclusive "first-last" pair. Addresses in a
// span must be strict dotted quads or inet_aton forms; malformed text is an
// error here because a span is configuration, not data.
func ParseSpan(s string) (first uint32, count uint64, err error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil || !p.Addr().Is4() {
			return 0, 0, fmt.Errorf("%w: %q", natcalcerrors.ErrInvalidSpan, s)
		}
		p = p.Masked()
		b := p.Addr().As4()
		first = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		return first, uint64(1) << (32 - p.Bits()), nil
	}

	lo, hi, found := strings.Cut(s, "-")
	first, ok := ParseAddrStrict(strings.TrimSpace(lo))
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", natcalcerrors.ErrInvalidSpan, s)
	}
	if !found {
		return first, 1, nil
	}
	last, ok := ParseAddrStrict(strings.TrimSpace(hi))
	if !ok || last < first {
		return 0, 0, fmt.Errorf("%w: %q", natcalcerrors.ErrInvalidSpan, s)
	}
	return first, uint64(last-first) + 1, nil
}

// ParseBound parses a pool bound given on a command line or in a config
// file. Unlike ParseAddr it rejects malformed text.
func ParseBound(s string) (uint32, error) {
	addr, ok := ParseAddrStrict(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("%w: %q", natcalcerrors.ErrInvalidAddress, s)
	}
	return addr, nil
}
