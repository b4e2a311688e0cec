package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record violates a uniqueness constraint.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a record fails a schema check.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrConflict is returned when a conditional update lost against the current state.
	ErrConflict = errors.New("persistence: conflicting update")
)

// StorageError wraps a failure raised by the storage backend with the
// operation and record kind that triggered it.
type StorageError struct {
	Op   string
	Kind string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorageError annotates err with op and kind. Sentinels defined in this
// package are returned unchanged so callers can compare them directly.
func WrapStorageError(op, kind string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrConflict) {
		return err
	}
	var sErr *StorageError
	if errors.As(err, &sErr) {
		return err
	}
	return &StorageError{Op: op, Kind: kind, Err: err}
}
