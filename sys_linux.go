//go:build linux

package natcalc

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE, added in Linux 5.14.
// On older kernels, madvise returns EINVAL which we ignore.
const madvPopulateWrite = 23

// fallocateFile reserves size bytes for a table file so that writes through
// the memory map cannot SIGBUS on a full disk. Falls back to ftruncate on
// filesystems without fallocate (NFS, some FUSE mounts).
func fallocateFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	_ = unix.Fallocate(fd, 0, 0, size)
	// Fallocate reserves blocks but does not set the file size.
	return unix.Ftruncate(fd, size)
}

// prefaultRegion asks the kernel to populate the entry region for writing
// before the fill workers start. Best-effort.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}

// fadviseSequential hints that a table is about to be read front to back,
// as Verify does. Best-effort.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
