package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. The transport layer translates each kind
// into exactly one HTTP status; nothing below the transport layer knows about
// HTTP.
type Kind int

// Error kinds, from least to most specific. KindInternal is the zero value so
// that any unclassified error is treated as an internal failure.
const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindValidation
	KindPersistence
)

// String returns a lowercase name for the kind, suitable for log attributes.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Error is a classified domain error with a stable, user-safe message.
// Sentinel values of this type are compared with errors.Is; causes are
// attached by wrapping, e.g. fmt.Errorf("%w: %w", ErrTaskCreationFailed, err).
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// newError is used to declare sentinels.
func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Authentication errors.
var (
	ErrNotAuthorized      = newError(KindAuthentication, "User is not authorized")
	ErrTokenMissing       = newError(KindAuthentication, "Token not found")
	ErrTokenExpired       = newError(KindAuthentication, "Token expired")
	ErrInvalidToken       = newError(KindAuthentication, "Incorrect token format")
	ErrInvalidCredentials = newError(KindAuthentication, "Email or password incorrect")
)

// Authorization errors.
var (
	ErrNoAccessRights = newError(KindAuthorization, "You don't have access rights")
)

// Not found errors.
var (
	ErrUserNotFound = newError(KindNotFound, "User not exists")
	ErrTaskNotFound = newError(KindNotFound, "Task not found")
)

// Conflict errors.
var (
	ErrUserAlreadyExists = newError(KindConflict, "User already exists")
	ErrTaskAlreadyExists = newError(KindConflict, "Task with this title already exists")
)

// Validation errors.
var (
	ErrValidation  = newError(KindValidation, "Validation failed")
	ErrUnknownUser = newError(KindValidation, "Referenced user does not exist")
)

// Persistence errors. These are the generic failures reported when a write
// fails for a reason other than a recognised constraint violation.
var (
	ErrTaskCreationFailed = newError(KindPersistence, "Failed to create task")
	ErrTaskUpdateFailed   = newError(KindPersistence, "Task was not updated")
)

// ErrPerformersNotLoaded is returned when a performer-based decision is
// requested for a task that was read without its performer set.
var ErrPerformersNotLoaded = newError(KindInternal, "task performers were not loaded")

// KindOf returns the kind of the first *Error found in err's chain.
// Errors that carry no classification are KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage returns the stable message of the first *Error in err's chain,
// or the empty string if there is none.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// NewValidationError wraps ErrValidation with a field-specific detail that is
// safe to show to clients.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ValidationError reports which input field was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap classifies every ValidationError as ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
