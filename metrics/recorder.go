package metrics

import "time"

// Reconcile outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeDiscarded = "discarded"
)

// Cache operations for IncCacheError.
const (
	CacheRead  = "read"
	CacheWrite = "write"
)

// Recorder defines observability hooks for bindings, the remote source and
// the HTTP surface.
type Recorder interface {
	ObserveReconcile(resource, outcome string, d time.Duration)
	IncCacheError(op string)
	ObserveRemote(op, resource string, d time.Duration, err error)
	ObserveRequest(method, route string, status int, d time.Duration)
	AddOpenBindings(delta int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveReconcile(string, string, time.Duration)     {}
func (NoopRecorder) IncCacheError(string)                               {}
func (NoopRecorder) ObserveRemote(string, string, time.Duration, error) {}
func (NoopRecorder) ObserveRequest(string, string, int, time.Duration)  {}
func (NoopRecorder) AddOpenBindings(int)                                {}
