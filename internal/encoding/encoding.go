// Package encoding packs mapping-table entries.
//
// An entry is the offset of a mapped address from the pool minimum, stored
// little-endian in 1, 2 or 4 bytes depending on the pool size.
package encoding

import "encoding/binary"

// Width returns the entry width in bytes needed for offsets up to maxOffset.
func Width(maxOffset uint32) int {
	switch {
	case maxOffset <= 0xff:
		return 1
	case maxOffset <= 0xffff:
		return 2
	default:
		return 4
	}
}

// ValidWidth reports whether w is a width produced by Width.
func ValidWidth(w int) bool {
	return w == 1 || w == 2 || w == 4
}

// PutEntry writes offset at slot pos of buf.
// Panics for widths other than 1, 2 and 4.
func PutEntry(buf []byte, pos, width int, offset uint32) {
	switch width {
	case 1:
		buf[pos] = uint8(offset)
	case 2:
		binary.LittleEndian.PutUint16(buf[pos*2:], uint16(offset))
	case 4:
		binary.LittleEndian.PutUint32(buf[pos*4:], offset)
	default:
		panic("encoding: PutEntry: unsupported width")
	}
}

// Entry reads the offset at slot pos of buf.
// Panics for widths other than 1, 2 and 4.
func Entry(buf []byte, pos, width int) uint32 {
	switch width {
	case 1:
		return uint32(buf[pos])
	case 2:
		return uint32(binary.LittleEndian.Uint16(buf[pos*2:]))
	case 4:
		return binary.LittleEndian.Uint32(buf[pos*4:])
	default:
		panic("encoding: Entry: unsupported width")
	}
}
