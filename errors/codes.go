package errors

import "net/http"

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion or quota issues.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors or corrupted state.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Transient
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	ErrCodeRemoteQuery ErrorCode = "REMOTE_QUERY" // remote source rejected or failed a query

	// Permanent
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeUnmappedKey  ErrorCode = "UNMAPPED_KEY" // key has no remote resource
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeCanceled     ErrorCode = "CANCELED"

	// Resource
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// Internal
	ErrCodeInternal   ErrorCode = "INTERNAL"
	ErrCodeCacheRead  ErrorCode = "CACHE_READ"
	ErrCodeCacheWrite ErrorCode = "CACHE_WRITE"
	ErrCodeCorruption ErrorCode = "CORRUPTION"
	ErrCodePanic      ErrorCode = "PANIC"
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeRemoteQuery:
		return CategoryTransient
	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeUnmappedKey, ErrCodeUnauthorized,
		ErrCodeForbidden, ErrCodeConflict, ErrCodeCanceled:
		return CategoryPermanent
	case ErrCodeQuotaExceeded:
		return CategoryResource
	default:
		return CategoryInternal
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:       "operation timed out",
	ErrCodeUnavailable:   "service temporarily unavailable",
	ErrCodeRemoteQuery:   "remote query failed",
	ErrCodeNotFound:      "not found",
	ErrCodeInvalidInput:  "invalid input provided",
	ErrCodeUnmappedKey:   "key has no remote mapping",
	ErrCodeUnauthorized:  "authentication required",
	ErrCodeForbidden:     "access denied",
	ErrCodeConflict:      "conflicting operation",
	ErrCodeCanceled:      "operation canceled",
	ErrCodeQuotaExceeded: "quota exceeded",
	ErrCodeInternal:      "internal error",
	ErrCodeCacheRead:     "durable cache read failed",
	ErrCodeCacheWrite:    "durable cache write failed",
	ErrCodeCorruption:    "stored value is corrupted",
	ErrCodePanic:         "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// HTTPStatus maps an error code onto the status the API surface answers with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeUnmappedKey:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnavailable, ErrCodeRemoteQuery:
		return http.StatusBadGateway
	case ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
