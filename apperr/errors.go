// Package apperr defines the error taxonomy shared by the file core.
// Callers classify failures with errors.Is / errors.As; handlers map
// each kind to an HTTP status and a stable error code.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound - the record, version, share or stored object does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden - the caller is neither owner nor privileged
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized - authentication or share password required and missing/wrong
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict - invalid state transition, e.g. restore to the current version
	ErrConflict = errors.New("conflict")

	// ErrExpired - the share token's expiry has passed
	ErrExpired = errors.New("share expired")

	// ErrLimitReached - the share token's download cap is exhausted
	ErrLimitReached = errors.New("download limit reached")
)

// ValidationError rejects an upload or request before any write occurs
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

// NewValidation builds a ValidationError with a stable code
func NewValidation(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a content-backend failure. Always surfaced, never swallowed.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IntegrityError reports a checksum mismatch on read. The affected
// content must not be served.
type IntegrityError struct {
	FileID   uuid.UUID
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for file %s: expected %s, got %s",
		e.FileID, e.Expected, e.Actual)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
