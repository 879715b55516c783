// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Catalog errors.
	ErrGoodNotFound    = errors.New("good not found in catalog")
	ErrCatalogNotReady = errors.New("catalog not loaded")

	// Import errors.
	ErrNoValidLines = errors.New("no valid lines to import")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
)

// StorageError indicates the underlying store is unreachable, locked or
// read-only. The message carries actionable guidance for the user.
type StorageError struct {
	Err error
	Msg string
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with a user-facing storage message.
func NewStorageError(msg string, err error) error {
	return &StorageError{Msg: msg, Err: err}
}

// ValidationError indicates the current operation must abort without any
// partial effect: either no lines survived validation or a post-write
// invariant check failed. Err, when set, carries the matching sentinel.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// WrapValidationError creates a validation error carrying a sentinel, so
// callers can branch on errors.Is while users still see the message.
func WrapValidationError(err error, msg string) error {
	return &ValidationError{Err: err, Msg: msg}
}

// ParseError indicates an invoice file could not be parsed.
type ParseError struct {
	Err error
	Msg string
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps err with a parse failure message.
func NewParseError(msg string, err error) error {
	return &ParseError{Msg: msg, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
