package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCapsuleNotFound is returned when a capsule does not exist.
	ErrCapsuleNotFound = errors.New("capsule not found")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrGoalNotFound is returned when a goal does not exist.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrShareNotFound is returned when no capsule carries the share token.
	ErrShareNotFound = errors.New("shared capsule not found")
	// ErrDuplicateEmail is returned on signup with an already registered email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned when an operation requires a session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotOwner is returned when a caller touches a capsule they do not own.
	ErrNotOwner = errors.New("capsule belongs to another user")
	// ErrNotGoalCapsule is returned when goals are attached to a capsule
	// created without a goal list.
	ErrNotGoalCapsule = errors.New("capsule does not track goals")
	// ErrCapsuleSealed is returned when an opened-only operation hits a
	// still sealed capsule.
	ErrCapsuleSealed = errors.New("capsule is still sealed")
	// ErrSharePassword is returned when a share password is missing or wrong.
	ErrSharePassword = errors.New("share password required or incorrect")
)

// ValidationError names the field that failed request validation.
// No state is mutated when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StillLockedError is returned when a capsule is opened before its date.
// Informational only: DaysRemaining is the ceiling of days left.
type StillLockedError struct {
	DaysRemaining int
}

func (e *StillLockedError) Error() string {
	return fmt.Sprintf("capsule is locked for %d more day(s)", e.DaysRemaining)
}

// StorageError wraps a persistence failure. The in-flight operation was
// aborted without partial application.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err as a StorageError, passing through nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ErrorResponse represents a standardized error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Handlers call this
// exactly once per failed request.
func MapErrorToHTTP(err error) *HTTPError {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return NewHTTPError(http.StatusBadRequest, validation.Error(), "VALIDATION_ERROR")
	}
	var locked *StillLockedError
	if errors.As(err, &locked) {
		return NewHTTPError(http.StatusLocked, locked.Error(), "STILL_LOCKED")
	}
	var storage *StorageError
	if errors.As(err, &storage) {
		return NewHTTPError(http.StatusInternalServerError, "storage failure", "STORAGE_ERROR")
	}

	switch {
	case errors.Is(err, ErrCapsuleNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrGoalNotFound),
		errors.Is(err, ErrShareNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_EMAIL")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrSharePassword):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "SHARE_PASSWORD")
	case errors.Is(err, ErrNotOwner):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotGoalCapsule), errors.Is(err, ErrCapsuleSealed):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
