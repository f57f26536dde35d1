// Package apperrors defines the coordinator's typed error taxonomy. Each
// kind carries a fixed HTTP status policy (spec.md §7) and preserves an
// optional causal chain via Unwrap so errors.Is/As work across internal
// propagation boundaries.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type (
	// ValidationError is bad client input: missing field, bad path. 4xx, no
	// retry, no state change.
	ValidationError struct {
		Message string
		Cause   error
	}

	// NotFoundError is a session or agent not present in its store/registry.
	// 404, no state change.
	NotFoundError struct {
		Message string
		Cause   error
	}

	// TransportError is a timeout, connection refused, or unparsable reply
	// from a worker. 5xx; the workflow stage is left unchanged.
	TransportError struct {
		Message string
		Cause   error
	}

	// WorkerError is returned when a worker replies {status:"error"}. The
	// worker is expected to have already written requires_user_clarification
	// and clarification_prompt and set stage to FAILED; the coordinator just
	// propagates.
	WorkerError struct {
		Message string
		Cause   error
	}

	// StorageError is a cache or filesystem failure. 5xx with a distinct
	// message; a cache-connectivity StorageError also makes /health report
	// unhealthy.
	StorageError struct {
		Message string
		Cause   error
	}

	// ConfigError is missing or invalid configuration at startup. Startup
	// aborts on this error.
	ConfigError struct {
		Message string
		Cause   error
	}
)

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return e.Cause }

func (e *TransportError) Error() string { return e.Message }
func (e *TransportError) Unwrap() error { return e.Cause }

func (e *WorkerError) Error() string { return e.Message }
func (e *WorkerError) Unwrap() error { return e.Cause }

func (e *StorageError) Error() string { return e.Message }
func (e *StorageError) Unwrap() error { return e.Cause }

func (e *ConfigError) Error() string { return e.Message }
func (e *ConfigError) Unwrap() error { return e.Cause }

// NewValidation constructs a ValidationError with the given message.
func NewValidation(message string) *ValidationError { return &ValidationError{Message: message} }

// NewValidationf constructs a ValidationError from a format string.
func NewValidationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NewNotFound constructs a NotFoundError with the given message.
func NewNotFound(message string) *NotFoundError { return &NotFoundError{Message: message} }

// NewNotFoundf constructs a NotFoundError from a format string.
func NewNotFoundf(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// WrapTransport wraps cause as a TransportError with the given message.
func WrapTransport(message string, cause error) *TransportError {
	return &TransportError{Message: message, Cause: cause}
}

// WrapWorker wraps cause as a WorkerError with the given message.
func WrapWorker(message string, cause error) *WorkerError {
	return &WorkerError{Message: message, Cause: cause}
}

// WrapStorage wraps cause as a StorageError with the given message.
func WrapStorage(message string, cause error) *StorageError {
	return &StorageError{Message: message, Cause: cause}
}

// WrapConfig wraps cause as a ConfigError with the given message.
func WrapConfig(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}

// HTTPStatus maps a typed error to the HTTP status spec.md §7 assigns it.
// Errors that do not match any taxonomy member map to 500.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		transport  *TransportError
		worker     *WorkerError
		storage    *StorageError
		cfg        *ConfigError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transport):
		return http.StatusInternalServerError
	case errors.As(err, &worker):
		return http.StatusInternalServerError
	case errors.As(err, &storage):
		return http.StatusInternalServerError
	case errors.As(err, &cfg):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
