package syncstate

import (
	"context"
	"encoding/json"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/model"
	"github.com/vinayprograms/finserve/remote"
)

// Item is an untyped collection element, for callers that handle arbitrary
// resources.
type Item map[string]any

// RecordID returns the element's id.
func (i Item) RecordID() string { return remote.Record(i).ID() }

// CollectionOption configures a Collection.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	newestFirst bool
}

// NewestFirst makes Upsert put new elements at the front.
func NewestFirst() CollectionOption {
	return func(c *collectionConfig) { c.newestFirst = true }
}

// Collection is a binding over a list of identified elements with per-record
// mirroring to the remote source.
type Collection[E model.Identified] struct {
	*Binding[[]E]
	cfg collectionConfig
}

// OpenCollection opens a binding for a collection key.
func OpenCollection[E model.Identified](ctx context.Context, deps Deps, key string, def []E, opts ...CollectionOption) *Collection[E] {
	c := &Collection[E]{Binding: Open(ctx, deps, key, def)}
	for _, opt := range opts {
		opt(&c.cfg)
	}
	return c
}

// Find returns the element with id.
func (c *Collection[E]) Find(id string) (E, bool) {
	for _, e := range c.Get() {
		if e.RecordID() == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Upsert replaces the element with the same id, or adds it. The local write
// always lands; the returned error reports a failed remote mirror only.
func (c *Collection[E]) Upsert(ctx context.Context, e E) error {
	id := e.RecordID()
	if id == "" {
		return ferrors.InvalidInput("upsert", "element has no id", ferrors.WithKey(c.key))
	}

	replaced := false
	err := c.Update(func(cur []E) []E {
		next := make([]E, 0, len(cur)+1)
		for _, x := range cur {
			if x.RecordID() == id {
				next = append(next, e)
				replaced = true
				continue
			}
			next = append(next, x)
		}
		if replaced {
			return next
		}
		if c.cfg.newestFirst {
			return append([]E{e}, next...)
		}
		return append(next, e)
	})
	if err != nil {
		return err
	}

	if !c.shouldReconcile() {
		return nil
	}
	rec, err := toRecord(e)
	if err != nil {
		return ferrors.Wrap(err, "encode element", ferrors.WithKey(c.key))
	}
	if replaced {
		err = c.deps.Remote.Update(ctx, c.desc.Resource, id, rec)
	} else {
		_, err = c.deps.Remote.Insert(ctx, c.desc.Resource, rec)
	}
	return c.mirrorErr("upsert", id, err)
}

// Remove deletes the element with id. A missing id yields NOT_FOUND and
// touches nothing.
func (c *Collection[E]) Remove(ctx context.Context, id string) error {
	found := false
	err := c.Update(func(cur []E) []E {
		next := make([]E, 0, len(cur))
		for _, x := range cur {
			if x.RecordID() == id {
				found = true
				continue
			}
			next = append(next, x)
		}
		if !found {
			return cur
		}
		return next
	})
	if err != nil {
		return err
	}
	if !found {
		return ferrors.NotFound("no element "+id, ferrors.WithKey(c.key))
	}

	if !c.shouldReconcile() {
		return nil
	}
	return c.mirrorErr("remove", id, c.deps.Remote.Delete(ctx, c.desc.Resource, id))
}

func (c *Collection[E]) mirrorErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	c.logger.Warn("remote mirror failed", map[string]interface{}{
		"key":   c.key,
		"op":    op,
		"id":    id,
		"error": err.Error(),
	})
	return wrapRemote(err, op+" "+id, c.key, c.desc.Resource)
}

func toRecord(v any) (remote.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec remote.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
