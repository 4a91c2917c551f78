package repository

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("conflict")
	// ErrStale is returned when a compare-and-swap update finds a newer version.
	ErrStale = errors.New("stale version")
	// ErrPrecondition is returned when a guarded write matched no row because
	// its condition (open session, mutable record) did not hold.
	ErrPrecondition = errors.New("write precondition not met")
)

// isUniqueViolation reports whether err came from a UNIQUE constraint or
// primary key collision.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
