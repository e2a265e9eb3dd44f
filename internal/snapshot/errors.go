package snapshot

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidMagic       = errors.New("snapshot: invalid magic bytes")
	ErrUnsupportedVersion = errors.New("snapshot: unsupported format version")
	ErrChecksumMismatch   = errors.New("snapshot: checksum mismatch, file may be corrupted")
	ErrHeaderTooLarge     = errors.New("snapshot: header exceeds maximum size")
)

// ValidationError describes a malformed tensor table.
type ValidationError struct {
	Type    string // e.g. "offset_overlap", "out_of_bounds"
	Tensor  string
	Tensor2 string // second tensor for overlaps and duplicates
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("snapshot: %s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("snapshot: %s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("snapshot: %s: %s", e.Type, e.Details)
}
