package natcalc

import (
	"encoding/binary"

	natcalcerrors "github.com/katsys/natcalc/errors"
	"github.com/katsys/natcalc/internal/encoding"
)

const (
	// magic number for natcalc mapping tables
	// "NATT" in little-endian
	magic = uint32(0x5454414E)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32

	// checksumChunk is the number of entries hashed per chunk of the
	// hash-of-hashes. Builders and Verify must agree on it.
	checksumChunk = 1 << 16

	// maxEntries is one entry per IPv4 address.
	maxEntries = uint64(1) << 32
)

// header is the 64-byte table header.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       4     Magic        0x5454414E ("NATT")
//	4       2     Version      0x0001
//	6       4     PoolMin      uint32_le (host-order address)
//	10      4     PoolMax      uint32_le (host-order address)
//	14      4     Seed         uint32_le
//	18      1     KeyOrder     uint8 (0=little, 1=big)
//	19      1     EntryWidth   uint8 (1, 2 or 4 bytes)
//	20      4     FirstInput   uint32_le (host-order address)
//	24      8     NumEntries   uint64_le (1..2^32)
//	32      32    Reserved     [32]byte (zero)
type header struct {
	Magic      uint32   // 4 bytes: magic number 0x5454414E
	Version    uint16   // 2 bytes: format version
	PoolMin    uint32   // 4 bytes: first pool address
	PoolMax    uint32   // 4 bytes: last pool address
	Seed       uint32   // 4 bytes: hash seed
	KeyOrder   KeyOrder // 1 byte: key byte order
	EntryWidth uint8    // 1 byte: bytes per entry
	FirstInput uint32   // 4 bytes: input address of entry 0
	NumEntries uint64   // 8 bytes: number of entries
	Reserved   [32]byte // 32 bytes: reserved (zero)
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint32(buf[6:10], h.PoolMin)
	binary.LittleEndian.PutUint32(buf[10:14], h.PoolMax)
	binary.LittleEndian.PutUint32(buf[14:18], h.Seed)
	buf[18] = uint8(h.KeyOrder)
	buf[19] = h.EntryWidth
	binary.LittleEndian.PutUint32(buf[20:24], h.FirstInput)
	binary.LittleEndian.PutUint64(buf[24:32], h.NumEntries)
	copy(buf[32:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, natcalcerrors.ErrTruncatedFile
	}

	h := &header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint16(buf[4:6]),
		PoolMin:    binary.LittleEndian.Uint32(buf[6:10]),
		PoolMax:    binary.LittleEndian.Uint32(buf[10:14]),
		Seed:       binary.LittleEndian.Uint32(buf[14:18]),
		KeyOrder:   KeyOrder(buf[18]),
		EntryWidth: buf[19],
		FirstInput: binary.LittleEndian.Uint32(buf[20:24]),
		NumEntries: binary.LittleEndian.Uint64(buf[24:32]),
	}
	copy(h.Reserved[:], buf[32:64])

	if h.Magic != magic {
		return nil, natcalcerrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, natcalcerrors.ErrInvalidVersion
	}
	if h.PoolMin > h.PoolMax || !h.KeyOrder.Valid() {
		return nil, natcalcerrors.ErrCorruptedTable
	}
	if int(h.EntryWidth) != encoding.Width(h.PoolMax-h.PoolMin) {
		return nil, natcalcerrors.ErrCorruptedTable
	}
	if h.NumEntries == 0 || uint64(h.FirstInput)+h.NumEntries > maxEntries {
		return nil, natcalcerrors.ErrCorruptedTable
	}

	return h, nil
}

// entryWidth returns EntryWidth as int for arithmetic convenience.
func (h *header) entryWidth() int {
	return int(h.EntryWidth)
}

// entryRegionSize returns the byte length of the entry region.
func (h *header) entryRegionSize() uint64 {
	return h.NumEntries * uint64(h.EntryWidth)
}

// footer is the 32-byte table footer.
//
// Layout:
//
//	Offset  Size  Field            Type
//	0       8     EntryRegionHash  uint64_le (xxHash64 hash-of-hashes)
//	8       24    Reserved         [24]byte (zero)
type footer struct {
	EntryRegionHash uint64   // 8 bytes: hash-of-hashes over checksumChunk-entry chunks
	Reserved        [24]byte // 24 bytes: reserved for future use
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.EntryRegionHash)
	copy(buf[8:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, natcalcerrors.ErrTruncatedFile
	}

	f := &footer{
		EntryRegionHash: binary.LittleEndian.Uint64(buf[0:8]),
	}
	copy(f.Reserved[:], buf[8:32])

	return f, nil
}
