package syncstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/metrics"
	"github.com/vinayprograms/finserve/state"
)

// ErrClosed is returned by writes on a closed binding.
var ErrClosed = errors.New("binding closed")

// Phase is the reconciliation state of a binding.
type Phase int

const (
	PhaseSeeded Phase = iota
	PhaseReconciling
	PhaseReconciled
	PhaseLocalAuthoritative
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSeeded:
		return "seeded"
	case PhaseReconciling:
		return "reconciling"
	case PhaseReconciled:
		return "reconciled"
	case PhaseLocalAuthoritative:
		return "local_authoritative"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseSeeded, PhaseReconciling, PhaseReconciled, PhaseLocalAuthoritative} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Binding is one key's state. Safe for concurrent use.
type Binding[T any] struct {
	key    string
	deps   Deps
	desc   keymap.Descriptor
	mapped bool
	logger *logging.Logger

	mu    sync.RWMutex
	value T
	phase Phase
	live  bool

	done chan struct{}
}

// Open seeds a binding for key from the durable cache, falling back to def,
// and starts its one reconciliation. It never fails: unreadable cache entries
// are logged and replaced by def.
//
// ctx scopes the reconciliation's remote query. Close does not cancel it.
func Open[T any](ctx context.Context, deps Deps, key string, def T) *Binding[T] {
	deps = deps.withDefaults()
	b := &Binding[T]{
		key:    key,
		deps:   deps,
		logger: deps.Logger.WithComponent("syncstate"),
		phase:  PhaseSeeded,
		live:   true,
		done:   make(chan struct{}),
	}
	b.desc, b.mapped = deps.Mapper.Lookup(key)
	b.value = b.load(def)
	deps.Metrics.AddOpenBindings(1)

	if !b.shouldReconcile() {
		b.phase = PhaseLocalAuthoritative
		deps.Metrics.ObserveReconcile(b.resource(), metrics.OutcomeSkipped, 0)
		close(b.done)
		return b
	}
	b.phase = PhaseReconciling
	go b.reconcile(ctx)
	return b
}

// load reads the cached value, or def when absent or unusable.
func (b *Binding[T]) load(def T) T {
	raw, err := b.deps.Cache.Get(b.key)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			b.logger.CacheReadFailed(b.key, err)
			b.deps.Metrics.IncCacheError(metrics.CacheRead)
		}
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		b.logger.CacheReadFailed(b.key, err)
		b.deps.Metrics.IncCacheError(metrics.CacheRead)
		return def
	}
	return v
}

// persist writes v to the durable cache. Caller holds mu.
func (b *Binding[T]) persist(v T) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.CacheWriteFailed(b.key, err)
		b.deps.Metrics.IncCacheError(metrics.CacheWrite)
		return
	}
	if err := b.deps.Cache.Put(b.key, data); err != nil {
		b.logger.CacheWriteFailed(b.key, err)
		b.deps.Metrics.IncCacheError(metrics.CacheWrite)
	}
}

func (b *Binding[T]) shouldReconcile() bool {
	return b.mapped && !keymap.IsPrivate(b.key)
}

func (b *Binding[T]) resource() string {
	if !b.mapped {
		return "unmapped"
	}
	return b.desc.Resource
}

// Key returns the state key.
func (b *Binding[T]) Key() string { return b.key }

// Descriptor returns the remote mapping and whether one exists.
func (b *Binding[T]) Descriptor() (keymap.Descriptor, bool) { return b.desc, b.mapped }

// Get returns the current value. The result shares memory with the binding
// and must be treated as read-only.
func (b *Binding[T]) Get() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Set replaces the value and writes it through to the durable cache. Cache
// failures are logged, not returned.
func (b *Binding[T]) Set(v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return ErrClosed
	}
	b.value = v
	b.persist(v)
	return nil
}

// Update applies fn to the current value and stores the result under the
// same lock, so concurrent updates do not lose each other's changes.
func (b *Binding[T]) Update(fn func(T) T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return ErrClosed
	}
	b.value = fn(b.value)
	b.persist(b.value)
	return nil
}

// EditRaw replaces the value with raw JSON from an editor. Malformed input, or
// input that does not fit the value's type, yields INVALID_INPUT carrying the
// parser message; the value is not touched.
func (b *Binding[T]) EditRaw(raw []byte) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return ferrors.InvalidInput("invalid JSON", err.Error(), ferrors.WithKey(b.key))
	}
	if err := b.Set(v); err != nil {
		return ferrors.Wrap(err, "edit "+b.key, ferrors.WithKey(b.key))
	}
	return nil
}

// JSON returns the current value encoded.
func (b *Binding[T]) JSON() (json.RawMessage, error) {
	data, err := json.Marshal(b.Get())
	if err != nil {
		return nil, ferrors.WrapWithCode(err, ferrors.ErrCodeInternal, "encode "+b.key,
			ferrors.WithKey(b.key))
	}
	return data, nil
}

// Reload re-reads the durable cache, picking up writes made through other
// bindings for the same key. A missing or unreadable entry keeps the value.
func (b *Binding[T]) Reload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return
	}
	b.value = b.load(b.value)
}

// Phase returns the reconciliation phase.
func (b *Binding[T]) Phase() Phase {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.phase
}

// Done is closed when reconciliation has finished or was skipped.
func (b *Binding[T]) Done() <-chan struct{} { return b.done }

// Live reports whether the binding is still open.
func (b *Binding[T]) Live() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Close unmounts the binding. Later writes return ErrClosed and a
// reconciliation still in flight is discarded when it resolves. Idempotent.
func (b *Binding[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return nil
	}
	b.live = false
	b.deps.Metrics.AddOpenBindings(-1)
	return nil
}
