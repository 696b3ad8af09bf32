package state

import (
	"errors"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNotFound    = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
	ErrInvalidKey  = errors.New("invalid key")
	ErrWatchClosed = errors.New("watch closed")
)

// Operation represents the type of change to a key.
type Operation int

const (
	// OpPut indicates a key was created or updated.
	OpPut Operation = iota
	// OpDelete indicates a key was deleted.
	OpDelete
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// KeyValue is a change notification or a full entry.
type KeyValue struct {
	Key       string
	Value     []byte
	Revision  uint64
	Operation Operation
	Modified  time.Time
}

// StateStore is the durable cache capability: get, set, remove plus the
// listing and change feed used by the HTTP surface.
type StateStore interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes a key. Returns nil if the key does not exist.
	Delete(key string) error

	// Keys returns all keys matching a pattern.
	// Pattern supports a trailing * wildcard (e.g., "finserve_users*").
	Keys(pattern string) ([]string, error)

	// Watch streams changes to keys matching pattern.
	// The channel is closed when the store closes.
	Watch(pattern string) (<-chan *KeyValue, error)

	// Close releases resources. Further calls return ErrClosed.
	Close() error
}

// ValidateKey checks if a key is usable by every backend.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, " \t\n*>") {
		return ErrInvalidKey
	}
	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return ErrInvalidKey
	}
	if len(key) > 1024 {
		return ErrInvalidKey
	}
	return nil
}

// MatchPattern checks if a key matches a pattern.
// Supports * wildcard at the end (e.g., "finserve_*" matches "finserve_users").
func MatchPattern(pattern, key string) bool {
	if pattern == "*" || pattern == "" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}
