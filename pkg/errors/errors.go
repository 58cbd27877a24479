// Package errors defines the sentinel errors shared by the indexing and query
// packages and maps them onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownLanguage    = errors.New("unknown language")
	ErrConfiguration      = errors.New("configuration error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedField     = errors.New("malformed field")
	ErrUnknownKind        = errors.New("unknown record kind")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Unavailable wraps err so that errors.Is(result, ErrStorageUnavailable)
// holds while the original cause stays reachable through errors.As.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// IsTransient reports whether retrying the whole call may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownLanguage):
		return http.StatusBadRequest
	case errors.Is(err, ErrMalformedField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
