package natcalc

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	natcalcerrors "github.com/katsys/natcalc/errors"
	"github.com/katsys/natcalc/internal/encoding"
)

// minFileSize is the size of a table with a single 1-byte entry.
const minFileSize = headerSize + 1 + footerSize

// Table is a read-only precomputed mapping table.
//
// Thread Safety:
// - Lookup, Verify and the accessors are safe for concurrent use
// - Close is NOT safe to call concurrently with lookups
// - After Close returns, Lookup and Verify return ErrTableClosed
type Table struct {
	// Memory map (no file handle needed after mmap)
	mmap mmap.MMap
	data []byte

	// Parsed header
	header *header

	// Entry region view into data
	entries []byte

	closed atomic.Bool // Atomic for lock-free close check
}

// OpenTable opens a mapping table file for lookups.
// It opens the file, memory-maps it, and closes the file descriptor.
func OpenTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table file: %w", err)
	}
	defer file.Close()
	return OpenTableFile(file)
}

// OpenTableFile opens a mapping table by memory-mapping the given file.
// The caller is responsible for closing f. Per POSIX mmap(2), f may be
// closed immediately after OpenTableFile returns.
func OpenTableFile(f *os.File) (*Table, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat table file: %w", err)
	}
	if stat.Size() < int64(minFileSize) {
		return nil, natcalcerrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap table file: %w", err)
	}

	t := &Table{
		mmap: mm,
		data: []byte(mm),
	}
	if err := t.initFromData(); err != nil {
		return nil, errors.Join(err, t.Close())
	}
	return t, nil
}

// OpenTableBytes creates a Table from an in-memory byte slice.
// No file is opened or memory-mapped; Close is a no-op.
// The caller must ensure data is not modified while the Table is in use.
func OpenTableBytes(data []byte) (*Table, error) {
	if len(data) < minFileSize {
		return nil, natcalcerrors.ErrTruncatedFile
	}
	t := &Table{
		data: data,
	}
	if err := t.initFromData(); err != nil {
		return nil, err
	}
	return t, nil
}

// initFromData parses the header and locates the entry region.
// Footer decoding is deferred to Verify.
func (t *Table) initFromData() error {
	hdr, err := decodeHeader(t.data[:headerSize])
	if err != nil {
		return err
	}

	want := uint64(headerSize) + hdr.entryRegionSize() + footerSize
	if uint64(len(t.data)) < want {
		return natcalcerrors.ErrTruncatedFile
	}
	if uint64(len(t.data)) > want {
		return natcalcerrors.ErrCorruptedTable
	}

	t.header = hdr
	t.entries = t.data[headerSize : headerSize+hdr.entryRegionSize()]
	return nil
}

// Close releases the memory map. Idempotent.
func (t *Table) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}

	if t.mmap != nil {
		return t.mmap.Unmap()
	}
	return nil
}

// Lookup returns the stored mapping of a host-order input address.
// Returns ErrNotInTable if addr is outside the table's input span and
// ErrCorruptedTable if the stored entry lies outside the pool.
func (t *Table) Lookup(addr uint32) (uint32, error) {
	if t.closed.Load() {
		return 0, natcalcerrors.ErrTableClosed
	}

	if addr < t.header.FirstInput {
		return 0, natcalcerrors.ErrNotInTable
	}
	i := uint64(addr - t.header.FirstInput)
	if i >= t.header.NumEntries {
		return 0, natcalcerrors.ErrNotInTable
	}

	offset := encoding.Entry(t.entries, int(i), t.header.entryWidth())
	if uint64(offset) >= t.Range().Size() {
		return 0, natcalcerrors.ErrCorruptedTable
	}
	return t.header.PoolMin + offset, nil
}

// Range returns the pool the table was built for.
func (t *Table) Range() Range {
	return Range{Min: t.header.PoolMin, Max: t.header.PoolMax}
}

// Pool rebuilds the Pool described by the header, so stored entries can be
// compared against a fresh computation.
func (t *Table) Pool() (*Pool, error) {
	return NewPool(t.header.PoolMin, t.header.PoolMax,
		WithSeed(t.header.Seed), WithKeyOrder(t.header.KeyOrder))
}

// First returns the input address of the first entry.
func (t *Table) First() uint32 {
	return t.header.FirstInput
}

// Len returns the number of entries.
func (t *Table) Len() uint64 {
	return t.header.NumEntries
}

// Verify checks the entry region against the footer checksum.
//
// The footer is decoded on each Verify call rather than at open time, so
// opening a table only touches the header page.
func (t *Table) Verify() error {
	if t.closed.Load() {
		return natcalcerrors.ErrTableClosed
	}

	ft, err := decodeFooter(t.data[len(t.data)-footerSize:])
	if err != nil {
		return err
	}

	width := uint64(t.header.entryWidth())
	n := numChunks(t.header.NumEntries)
	hashes := make([]uint64, n)
	for c := range n {
		start, end := chunkBounds(c, t.header.NumEntries)
		hashes[c] = xxhash.Sum64(t.entries[start*width : end*width])
	}
	if foldChunkHashes(hashes) != ft.EntryRegionHash {
		return natcalcerrors.ErrChecksumFailed
	}
	return nil
}

// VerifyTable opens the table at path with a sequential read-ahead hint,
// verifies its checksum and closes it.
func VerifyTable(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open table file: %w", err)
	}
	defer file.Close()

	if stat, err := file.Stat(); err == nil {
		fadviseSequential(int(file.Fd()), 0, stat.Size())
	}

	t, err := OpenTableFile(file)
	if err != nil {
		return err
	}
	return errors.Join(t.Verify(), t.Close())
}
