package docstore

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an operation against an unknown id.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports that the operation collides with an existing entity.
// ConflictID carries the id of that entity so callers can link to it.
type ConflictError struct {
	ConflictID string
	Message    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (conflicts with %s)", e.Message, e.ConflictID)
}

// StorageError wraps an I/O failure against the persisted collection.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
