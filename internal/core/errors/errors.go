package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent failure modes the agent can act on
var (
	// Authentication
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenMissing       = errors.New("no access token available")
	ErrTokenExpired       = errors.New("access token expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("action forbidden")

	// Stream
	ErrStreamDisabled   = errors.New("event stream is disabled")
	ErrStreamExhausted  = errors.New("reconnect attempts exhausted")
	ErrFrameUnparseable = errors.New("inbound frame could not be parsed")

	// Backend API
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrRateLimited        = errors.New("rate limit exceeded")

	// Generic
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// NewBackendError maps an upstream dashboard API status code to an AppError.
func NewBackendError(status int, body string) *AppError {
	switch status {
	case 401:
		return NewUnauthorizedError("backend rejected credentials")
	case 403:
		return NewForbiddenError("backend denied access")
	case 404:
		return NewNotFoundError(ErrNotFound, "backend resource not found")
	case 429:
		return NewRateLimitError()
	default:
		return &AppError{
			Err:        ErrBackendUnavailable,
			Message:    fmt.Sprintf("backend returned status %d", status),
			Code:       "BACKEND_ERROR",
			StatusCode: 502,
			Details:    map[string]interface{}{"upstream_status": status, "body": body},
		}
	}
}
