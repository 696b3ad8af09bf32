package syncstate

import (
	"context"
	"encoding/json"
	"sync"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/keymap"
)

// Entry is the type-erased view of a binding used by the HTTP surface.
type Entry interface {
	Key() string
	JSON() (json.RawMessage, error)
	EditRaw(raw []byte) error
	Phase() Phase
	Done() <-chan struct{}
	Shape() keymap.Shape
	Push(ctx context.Context) error
	Reload()
	Close() error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// PrependTo makes Upsert on the named resources put new elements first.
func PrependTo(resources ...string) PoolOption {
	return func(p *Pool) {
		for _, r := range resources {
			p.prepend[r] = true
		}
	}
}

// Pool keeps one long-lived binding per key, so each key reconciles once for
// the pool's lifetime. Collection keys hold []Item, everything else holds raw
// JSON.
type Pool struct {
	ctx     context.Context
	deps    Deps
	prepend map[string]bool

	mu      sync.Mutex
	entries map[string]Entry
	closed  bool
}

// NewPool creates a pool. ctx scopes every reconciliation the pool starts.
func NewPool(ctx context.Context, deps Deps, opts ...PoolOption) *Pool {
	p := &Pool{
		ctx:     ctx,
		deps:    deps.withDefaults(),
		prepend: make(map[string]bool),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deps returns the pool's collaborators with defaults applied.
func (p *Pool) Deps() Deps { return p.deps }

// Entry returns the binding for key, opening it with def on first use. Later
// callers share that binding; their def is ignored.
// A def that does not fit a collection key yields INVALID_INPUT.
func (p *Pool) Entry(key string, def json.RawMessage) (Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if e, ok := p.entries[key]; ok {
		return e, nil
	}

	var e Entry
	if desc, ok := p.deps.Mapper.Lookup(key); ok && desc.Shape == keymap.ShapeCollection {
		var items []Item
		if len(def) > 0 {
			if err := json.Unmarshal(def, &items); err != nil {
				return nil, ferrors.InvalidInput("collection default", err.Error(), ferrors.WithKey(key))
			}
		}
		if items == nil {
			items = []Item{}
		}
		var opts []CollectionOption
		if p.prepend[desc.Resource] {
			opts = append(opts, NewestFirst())
		}
		e = OpenCollection(p.ctx, p.deps, key, items, opts...)
	} else {
		if len(def) == 0 {
			def = json.RawMessage("null")
		}
		e = Open(p.ctx, p.deps, key, def)
	}
	p.entries[key] = e
	return e, nil
}

// Collection returns the collection binding for key. Keys without a
// collection mapping yield UNMAPPED_KEY.
func (p *Pool) Collection(key string, def json.RawMessage) (*Collection[Item], error) {
	e, err := p.Entry(key, def)
	if err != nil {
		return nil, err
	}
	c, ok := e.(*Collection[Item])
	if !ok {
		return nil, ferrors.Unmapped(key)
	}
	return c, nil
}

// Lookup returns an open entry without opening one.
func (p *Pool) Lookup(key string) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	return e, ok
}

// Reload refreshes the open entry for key from the durable cache.
func (p *Pool) Reload(key string) {
	if e, ok := p.Lookup(key); ok {
		e.Reload()
	}
}

// Close closes every entry. Further Entry calls return ErrClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, e := range p.entries {
		_ = e.Close()
	}
	p.entries = nil
	return nil
}
