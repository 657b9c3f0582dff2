package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey matches every *DuplicateKeyError.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStoreBusy matches every *StoreBusyError.
	ErrStoreBusy = errors.New("store busy")

	ErrNotFound     = errors.New("not found")
	ErrStoreFailure = errors.New("store failure")
)

var (
	ErrInvalidAmount      = &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	ErrNegativeBudget     = &ValidationError{Field: "amount", Reason: "must not be negative"}
	ErrInvalidDate        = &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
	ErrInvalidMonth       = &ValidationError{Field: "month", Reason: "must be YYYY-MM or YYYY-MM-DD"}
	ErrEmptyCategory      = &ValidationError{Field: "category", Reason: "is required"}
	ErrUnknownCategory    = &ValidationError{Field: "category", Reason: "must name a known category"}
	ErrEmptyUsername      = &ValidationError{Field: "username", Reason: "is required"}
	ErrEmptyEmail         = &ValidationError{Field: "email", Reason: "is required"}
	ErrEmptyGroupName     = &ValidationError{Field: "name", Reason: "is required"}
	ErrInvalidUser        = &ValidationError{Field: "user_id", Reason: "must reference an existing user"}
	ErrDescriptionTooLong = &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	ErrInvalidRange       = &ValidationError{Field: "start", Reason: "must not be after end"}
)

// ValidationError rejects input before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateKeyError reports a unique constraint violation. It is never retried.
type DuplicateKeyError struct {
	Entity string
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("duplicate %s", e.Entity)
	}
	return fmt.Sprintf("duplicate %s: %s", e.Entity, e.Key)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// StoreBusyError is returned once lock contention outlasts every retry attempt.
type StoreBusyError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *StoreBusyError) Error() string {
	return fmt.Sprintf("%s: store busy after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *StoreBusyError) Unwrap() error { return e.Err }

func (e *StoreBusyError) Is(target error) bool {
	return target == ErrStoreBusy
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
