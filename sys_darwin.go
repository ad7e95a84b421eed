//go:build darwin

package natcalc

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes for a table file so that writes through
// the memory map cannot SIGBUS on a full disk. Uses fcntl F_PREALLOCATE and
// falls back to a plain ftruncate if the filesystem refuses.
func fallocateFile(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  size,
	}
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	// F_PREALLOCATE only reserves space; the size must be set separately.
	return unix.Ftruncate(int(file.Fd()), size)
}

// prefaultRegion is a no-op: macOS has no MADV_POPULATE_WRITE.
func prefaultRegion(data []byte) {}

// fadviseSequential hints sequential access with F_RDAHEAD. Best-effort.
func fadviseSequential(fd int, offset, length int64) {
	_, _ = unix.FcntlInt(uintptr(fd), unix.F_RDAHEAD, 1)
}
