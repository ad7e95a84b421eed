//go:build !linux && !darwin

package natcalc

import "os"

// fallocateFile sets the table file size. Without a native fallocate the
// blocks may not be reserved up front on every filesystem.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}

// prefaultRegion is a no-op on this platform.
func prefaultRegion(data []byte) {}

// fadviseSequential is a no-op on this platform.
func fadviseSequential(fd int, offset, length int64) {}
