package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when no valid session identity is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller's role or ownership does not permit the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a referenced resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrEmailTaken is returned when registering or updating to an email already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrUserReferenced is returned when deleting a user still referenced by tasks.
	ErrUserReferenced = errors.New("user is referenced by existing tasks")
	// ErrStaleVersion is returned when a task mutation carries an outdated version stamp.
	ErrStaleVersion = errors.New("task was modified by another request")
)

// ValidationError carries a schema-level rejection message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError with a formatted message.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
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

// Map maps domain errors to HTTP errors. Unrecognized errors surface as a
// generic 500 without leaking internals.
func Map(err error) *HTTPError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewHTTPError(http.StatusBadRequest, ve.Message, "VALIDATION_ERROR")
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, "Forbidden", "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrUserReferenced):
		return NewHTTPError(http.StatusConflict, err.Error(), "USER_REFERENCED")
	case errors.Is(err, ErrStaleVersion):
		return NewHTTPError(http.StatusConflict, err.Error(), "STALE_VERSION")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
