// Package store persists deployment records so that a run can be resumed.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when no record exists for a unit.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when a unit already has a record in this
	// run, or already has a success record from any run.
	ErrDuplicateRecord = errors.New("unit already has a terminal record")

	// ErrWriteFailed is returned when a record cannot be persisted.
	// Progress cannot be trusted after this, so callers treat it as fatal.
	ErrWriteFailed = errors.New("result store write failed")

	// ErrConnectionFailed is returned when the store cannot be opened.
	ErrConnectionFailed = errors.New("result store connection failed")

	// ErrMigrationFailed is returned when the database schema cannot be applied.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned for records that fail validation or stored
	// rows that cannot be decoded.
	ErrInvalidData = errors.New("invalid data format")

	// ErrUnknownDriver is returned by Open for an unsupported backend.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// StoreError wraps errors with additional context.
type StoreError struct {
	Op      string // Operation that failed (e.g., "Record")
	Entity  string // Entity type (e.g., "deployment_record")
	ID      string // Unit key if applicable
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, entity, id, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// IsFatal reports whether err means progress can no longer be persisted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrWriteFailed) || errors.Is(err, ErrConnectionFailed)
}
