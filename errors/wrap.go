package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Wrap wraps an error with additional context while preserving the chain.
// Context errors become TIMEOUT/CANCELED; unknown errors become INTERNAL.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		wrapped := &Error{
			code:      se.code,
			category:  se.category,
			message:   message,
			cause:     err,
			metadata:  se.Metadata(),
			retryable: se.retryable,
			timestamp: se.timestamp,
			key:       se.key,
			resource:  se.resource,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	return New(code, message, append(opts, WithCause(err))...)
}

// AsStructured extracts a StructuredError from an error chain, or nil.
func AsStructured(err error) StructuredError {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// Is reports whether any error in the chain has the given code.
func Is(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.code == code
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}

// Code extracts the error code, or "" for foreign errors.
func Code(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.code
	}
	return ""
}

// GetMetadata extracts metadata from an error, or nil.
func GetMetadata(err error) map[string]string {
	var se *Error
	if errors.As(err, &se) {
		return se.Metadata()
	}
	return nil
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.code.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Join combines multiple errors into a single error.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
