// Package errors defines the sentinel errors shared across the service and an
// AppError type that carries an HTTP status alongside the cause.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrCorpusLoad    = errors.New("corpus load failed")
	ErrIndexNotReady = errors.New("index not ready")
	ErrNoProvider    = errors.New("no corpus provider configured")
	ErrInternal      = errors.New("internal error")
	ErrTimeout       = errors.New("operation timed out")

	// ErrMalformedCorpus marks corpus content that cannot be decoded. Loading
	// the same content again fails the same way.
	ErrMalformedCorpus = errors.New("malformed corpus")
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

// HTTPStatusCode maps err to the status the HTTP layer should answer with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoProvider):
		return http.StatusConflict
	case errors.Is(err, ErrCorpusLoad):
		return http.StatusBadGateway
	case errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
