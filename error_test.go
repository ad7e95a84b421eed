package natcalc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	natcalcerrors "github.com/katsys/natcalc/errors"
)

// ---------------------------------------------------------------------------
// Category 1: Open errors
// ---------------------------------------------------------------------------

func TestOpenTableNonExistentFilePath(t *testing.T) {
	_, err := OpenTable("/nonexistent/path/to/file.natt")
	if err == nil {
		t.Error("Expected error for non-existent file path")
	}
}

func TestOpenTableDirectory(t *testing.T) {
	_, err := OpenTable(t.TempDir())
	if err == nil {
		t.Error("Expected error when opening a directory")
	}
}

func TestOpenTableEmptyFile(t *testing.T) {
	emptyFile := filepath.Join(t.TempDir(), "empty.natt")
	if err := os.WriteFile(emptyFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenTable(emptyFile)
	if !errors.Is(err, natcalcerrors.ErrTruncatedFile) {
		t.Errorf("Expected ErrTruncatedFile, got %v", err)
	}
}

// TestOpenTableCorruptedMagic goes through the file path; the in-memory
// variants live in TestOpenTableBytesCorruption.
func TestOpenTableCorruptedMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magic.natt")
	data := readTable(t)
	data[0] = 0xFF
	data[1] = 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenTable(path); !errors.Is(err, natcalcerrors.ErrInvalidMagic) {
		t.Errorf("Expected ErrInvalidMagic, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Category 2: Wrapped errors
// ---------------------------------------------------------------------------

// TestErrorsWrapSentinels checks that detailed errors still match their
// sentinels with errors.Is.
func TestErrorsWrapSentinels(t *testing.T) {
	_, err := NewRange(2, 1)
	if !errors.Is(err, natcalcerrors.ErrInvalidRange) {
		t.Errorf("NewRange: expected ErrInvalidRange, got %v", err)
	}
	_, err = ParseKeyOrder("pdp")
	if !errors.Is(err, natcalcerrors.ErrInvalidKeyOrder) {
		t.Errorf("ParseKeyOrder: expected ErrInvalidKeyOrder, got %v", err)
	}
	_, err = NewDistribution(Range{Min: 0, Max: 1 << 24})
	if !errors.Is(err, natcalcerrors.ErrPoolTooLarge) {
		t.Errorf("NewDistribution: expected ErrPoolTooLarge, got %v", err)
	}
	if err := validateSpan(1, 0); !errors.Is(err, natcalcerrors.ErrInvalidSpan) {
		t.Errorf("validateSpan: expected ErrInvalidSpan, got %v", err)
	}
}
