package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/tracker-api/internal/domain"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a task with the same title).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when a write is rejected by a foreign key,
	// check or not-null constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction cannot be started or committed.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Entity-specific errors. Each wraps both the generic store error and the
// domain error that the service and transport layers classify.
var (
	ErrUserNotFound = fmt.Errorf("%w: %w", ErrNotFound, domain.ErrUserNotFound)
	ErrTaskNotFound = fmt.Errorf("%w: %w", ErrNotFound, domain.ErrTaskNotFound)
	ErrJobNotFound  = fmt.Errorf("%w: job", ErrNotFound)

	ErrEmailExists  = fmt.Errorf("%w: %w", ErrDuplicate, domain.ErrUserAlreadyExists)
	ErrTitleExists  = fmt.Errorf("%w: %w", ErrDuplicate, domain.ErrTaskAlreadyExists)
	ErrDuplicateJob = fmt.Errorf("%w: job", ErrDuplicate)

	// ErrUnknownUser is returned when a task references a user id that does
	// not exist, as responsible user or as performer.
	ErrUnknownUser = fmt.Errorf("%w: %w", ErrInvalidEntity, domain.ErrUnknownUser)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "user", "task")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
