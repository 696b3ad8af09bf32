package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed        = errors.New("limiter closed")
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DefaultSubject carries capacity reductions between processes.
const DefaultSubject = "finserve.ratelimit.capacity"

// Limiter paces calls against named buckets.
type Limiter interface {
	// Acquire blocks until a token is available in bucket.
	// Returns the context error if ctx ends first, ErrUnknownBucket if the
	// bucket has no capacity configured.
	Acquire(ctx context.Context, bucket string) error

	// TryAcquire takes a token if one is available.
	TryAcquire(bucket string) bool

	// Release marks an acquired call as finished. Tokens come back only
	// through refill.
	Release(bucket string)

	// SetCapacity allows capacity calls per window. A non-positive capacity
	// or window removes the bucket.
	SetCapacity(bucket string, capacity int, window time.Duration)

	// Reduce lowers the bucket's capacity after the remote side pushed back
	// (for example an HTTP 429).
	Reduce(bucket, reason string)

	// Capacity reports the bucket's state, or nil when it is unknown.
	Capacity(bucket string) *Capacity

	Close() error
}

// Capacity is a bucket snapshot.
type Capacity struct {
	Bucket    string
	Available int
	Total     int
	Window    time.Duration
	InFlight  int
}

// CapacityUpdate is published when a process reduces a bucket.
type CapacityUpdate struct {
	Bucket      string    `json:"bucket"`
	Instance    string    `json:"instance"`
	NewCapacity int       `json:"new_capacity"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// OnCapacityChange observes reductions received from other processes.
type OnCapacityChange func(update *CapacityUpdate)
