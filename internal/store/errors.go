package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrTaskNotFound, ErrInstanceNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second instance for the same task and date).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrInstanceNotFound indicates that the requested task instance does not
	// exist in the store.
	ErrInstanceNotFound = fmt.Errorf("%w: task instance", ErrNotFound)

	// ErrSyncRecordNotFound indicates that the requested sync record does not
	// exist in the store.
	ErrSyncRecordNotFound = fmt.Errorf("%w: sync record", ErrNotFound)

	// ErrSyncSettingsNotFound indicates that no sync settings row exists for
	// the requested user.
	ErrSyncSettingsNotFound = fmt.Errorf("%w: sync settings", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrInstanceExists indicates that an instance already exists for the
	// given (task, instance date) pair. Materialization treats this as a
	// benign race, not a failure.
	ErrInstanceExists = fmt.Errorf("%w: task instance", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
