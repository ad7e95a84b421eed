package natcalc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/katsys/natcalc/internal/encoding"
	"golang.org/x/sync/errgroup"
)

// tableWriter writes a mapping table using mmap-based zero-copy writes.
// File layout: [Header 64B][Entry region NumEntries×EntryWidth][Footer 32B]
type tableWriter struct {
	path string
	file *os.File
	mmap mmap.MMap // Memory-mapped region
	data []byte    // View into mmap for direct writes

	pool    *Pool
	header  header
	entries []byte // Entry region view into data

	// Per-chunk xxHash64 values, folded in chunk order by finalize.
	chunkHashes []uint64
}

// BuildTable computes the mapping of count consecutive input addresses
// starting at first and writes it to a table file at path.
//
// The file is pre-allocated, memory-mapped and filled in chunks of
// checksumChunk entries, in parallel when WithTableWorkers(n > 1) is given.
// On failure the partial file is removed.
func BuildTable(ctx context.Context, path string, p *Pool, first uint32, count uint64, opts ...TableOption) error {
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validateSpan(first, count); err != nil {
		return err
	}

	tw, err := newTableWriter(path, p, first, count)
	if err != nil {
		return err
	}
	if err := tw.fill(ctx, cfg.workers); err != nil {
		return errors.Join(err, tw.abort())
	}
	if err := tw.finalize(); err != nil {
		return errors.Join(err, os.Remove(path))
	}
	return nil
}

// newTableWriter creates the file, pre-allocates it and maps it read-write.
func newTableWriter(path string, p *Pool, first uint32, count uint64) (*tableWriter, error) {
	r := p.Range()
	width := encoding.Width(r.Max - r.Min)
	hdr := header{
		Magic:      magic,
		Version:    version,
		PoolMin:    r.Min,
		PoolMax:    r.Max,
		Seed:       p.Seed(),
		KeyOrder:   p.KeyOrder(),
		EntryWidth: uint8(width),
		FirstInput: first,
		NumEntries: count,
	}
	fileSize := headerSize + hdr.entryRegionSize() + footerSize

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create table file: %w", err)
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full
	if err := fallocateFile(file, int64(fileSize)); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	mm, err := mmap.MapRegion(file, int(fileSize), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	tw := &tableWriter{
		path:        path,
		file:        file,
		mmap:        mm,
		data:        []byte(mm),
		pool:        p,
		header:      hdr,
		chunkHashes: make([]uint64, numChunks(count)),
	}
	tw.entries = tw.data[headerSize : headerSize+hdr.entryRegionSize()]

	// On Linux 5.14+, uses MADV_POPULATE_WRITE. No-op on other platforms.
	prefaultRegion(tw.entries)

	return tw, nil
}

// numChunks returns the number of checksum chunks covering count entries.
func numChunks(count uint64) int {
	return int((count + checksumChunk - 1) / checksumChunk)
}

// fill computes every entry. Chunks cover disjoint byte ranges of the
// mapping, so workers write without synchronization.
func (tw *tableWriter) fill(ctx context.Context, workers int) error {
	n := len(tw.chunkHashes)
	if workers < 2 || n == 1 {
		for c := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			tw.fillChunk(c)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tw.fillChunk(c)
			return nil
		})
	}
	return g.Wait()
}

// fillChunk maps the inputs of one chunk and records the chunk hash.
func (tw *tableWriter) fillChunk(c int) {
	width := tw.header.entryWidth()
	start, end := chunkBounds(c, tw.header.NumEntries)
	poolMin := tw.header.PoolMin
	for i := start; i < end; i++ {
		mapped := tw.pool.Map(tw.header.FirstInput + uint32(i))
		encoding.PutEntry(tw.entries, int(i), width, mapped-poolMin)
	}
	tw.chunkHashes[c] = xxhash.Sum64(tw.entries[start*uint64(width) : end*uint64(width)])
}

// chunkBounds returns the entry index range [start, end) of chunk c.
func chunkBounds(c int, count uint64) (start, end uint64) {
	start = uint64(c) * checksumChunk
	end = min(start+checksumChunk, count)
	return start, end
}

// foldChunkHashes computes the hash-of-hashes over chunk hashes in order.
func foldChunkHashes(hashes []uint64) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, ch := range hashes {
		binary.LittleEndian.PutUint64(buf[:], ch)
		if _, err := h.Write(buf[:]); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
	}
	return h.Sum64()
}

// finalize writes header and footer, flushes and closes the file.
// On error, delegates to close() for idempotent cleanup.
func (tw *tableWriter) finalize() error {
	tw.header.encodeTo(tw.data[0:headerSize])

	ftr := footer{EntryRegionHash: foldChunkHashes(tw.chunkHashes)}
	ftr.encodeTo(tw.data[headerSize+tw.header.entryRegionSize():])

	// Flush dirty pages to file (ensures writes visible before unmap)
	if err := tw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, tw.close())
	}

	// Nil mmap regardless of outcome to prevent close() from retrying.
	unmapErr := tw.mmap.Unmap()
	tw.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, tw.close())
	}

	closeErr := tw.file.Close()
	tw.file = nil
	return closeErr
}

// close closes the writer without finalizing (for error cleanup).
// Idempotent: safe to call multiple times.
func (tw *tableWriter) close() error {
	var unmapErr error
	if tw.mmap != nil {
		unmapErr = tw.mmap.Unmap()
		tw.mmap = nil
	}
	var closeErr error
	if tw.file != nil {
		closeErr = tw.file.Close()
		tw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}

// abort closes the writer and removes the partial file.
func (tw *tableWriter) abort() error {
	return errors.Join(tw.close(), os.Remove(tw.path))
}
