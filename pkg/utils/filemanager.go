// =============================================================================
// Sales Validator - File Manager Utility
// =============================================================================
//
// This module provides file helpers shared by the commands and the cleaner:
//   - Directory management
//   - Input format detection
//   - Content fingerprints (xxh3-64) for idempotence checks
//   - Run identifiers
//
// =============================================================================

package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Input formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureParentDir creates the directory that will hold path.
//
// RETURNS:
//   - An error if the directory cannot be created.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// INPUT FORMAT
// =============================================================================

// DetectFormat returns the input format for path based on its extension.
// Anything that is not a workbook is read as delimited text.
//
// RETURNS:
//   - FormatXLSX for .xlsx and .xlsm files.
//   - FormatCSV otherwise.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// =============================================================================
// FINGERPRINTS
// =============================================================================

// FingerprintFile returns the hex-encoded xxh3-64 hash of the file contents.
//
// RETURNS:
//   - The fingerprint, or "" with a nil error if the file does not exist.
//   - An error if the file exists but cannot be read.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// =============================================================================
// RUN IDENTIFIERS
// =============================================================================

// NewRunID returns a unique identifier for a run.
func NewRunID() string {
	return uuid.New().String()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
