package container

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrNodeExists         = errors.New("node already exists")
	ErrInvalidNodeName    = errors.New("invalid node name")
	ErrTooManyNodes       = errors.New("too many nodes in file")
	ErrNodeNameTooLong    = errors.New("node name too long")
	ErrOffsetOverlap      = errors.New("dataset offsets overlap")
	ErrOutOfBounds        = errors.New("dataset extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Node    string // Primary node path involved
	Node2   string // Secondary node path (for overlap errors)
	Details string // Additional details
	Err     error  // Matching sentinel error, if one exists
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Node2 != "" {
		return fmt.Sprintf("%s: nodes %q and %q: %s", e.Type, e.Node, e.Node2, e.Details)
	}
	if e.Node != "" {
		return fmt.Sprintf("%s: node %q: %s", e.Type, e.Node, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap exposes the sentinel so errors.Is works on validation failures.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
