// Package errors defines all exported error sentinels for the natcalc library.
//
// This is the single source of truth for error values. The top-level natcalc
// package, the command-line tools and the internal helpers all import from
// here, so errors.Is checks work across package boundaries.
package errors

import "errors"

// Pool errors
var (
	ErrInvalidRange    = errors.New("natcalc: pool minimum is greater than pool maximum")
	ErrInvalidKeyOrder = errors.New("natcalc: unknown key byte order")
	ErrInvalidAddress  = errors.New("natcalc: invalid IPv4 address")
	ErrInvalidSpan     = errors.New("natcalc: invalid input address span")
	ErrPoolTooLarge    = errors.New("natcalc: pool too large for a distribution tally")
)

// Table errors
var (
	ErrInvalidMagic   = errors.New("natcalc: invalid magic number")
	ErrInvalidVersion = errors.New("natcalc: unsupported version")
	ErrChecksumFailed = errors.New("natcalc: table checksum verification failed")
	ErrTruncatedFile  = errors.New("natcalc: table file is truncated")
	ErrCorruptedTable = errors.New("natcalc: table data is corrupted")
	ErrNotInTable     = errors.New("natcalc: address is outside the table span")
	ErrTableClosed    = errors.New("natcalc: table is closed")
)
