package syncstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/metrics"
	"github.com/vinayprograms/finserve/remote"
	"github.com/vinayprograms/finserve/telemetry"
)

func (b *Binding[T]) reconcile(ctx context.Context) {
	defer close(b.done)

	if b.deps.ReconcileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.deps.ReconcileTimeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := b.deps.Tracer.StartReconcileSpan(ctx, b.key)

	payload, records, err := b.fetch(ctx)
	outcome := metrics.OutcomeEmpty
	var value T
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailed
	case payload != nil:
		if value, err = decode[T](payload); err != nil {
			outcome = metrics.OutcomeFailed
		} else {
			outcome = metrics.OutcomeApplied
		}
	}

	b.mu.Lock()
	switch {
	case !b.live:
		outcome = metrics.OutcomeDiscarded
	case outcome == metrics.OutcomeApplied:
		b.value = value
		b.persist(value)
		b.phase = PhaseReconciled
	default:
		b.phase = PhaseLocalAuthoritative
	}
	b.mu.Unlock()

	elapsed := time.Since(start)
	opts := telemetry.ReconcileSpanOptions{
		Resource: b.desc.Resource,
		Shape:    string(b.desc.Shape),
		Outcome:  outcome,
		Records:  records,
	}
	if b.deps.Tracer.Debug() && payload != nil {
		if data, mErr := json.Marshal(payload); mErr == nil {
			opts.Value = string(data)
		}
	}
	b.deps.Tracer.EndReconcileSpan(span, opts, err)
	b.deps.Metrics.ObserveReconcile(b.desc.Resource, outcome, elapsed)
	b.logger.ReconcileResult(b.key, b.desc.Resource, outcome, elapsed)
	if err != nil {
		b.logger.Debug("reconcile error", map[string]interface{}{
			"key":   b.key,
			"error": err.Error(),
		})
	}
}

// fetch queries the remote source. A nil payload with a nil error means the
// remote had nothing to say.
func (b *Binding[T]) fetch(ctx context.Context) (any, int, error) {
	if b.desc.IsObject() {
		rec, err := b.deps.Remote.SelectOne(ctx, b.desc.Resource, b.desc.SingletonID)
		if err != nil || rec == nil {
			return nil, 0, err
		}
		if b.desc.Envelope != "" {
			inner, ok := rec[b.desc.Envelope]
			if !ok || inner == nil {
				return nil, 0, nil
			}
			return inner, 1, nil
		}
		return rec.WithoutBookkeeping(), 1, nil
	}

	// Collection rows keep created_at; pages sort and display by it.
	recs, err := b.deps.Remote.SelectAll(ctx, b.desc.Resource)
	if err != nil || len(recs) == 0 {
		return nil, 0, err
	}
	return recs, len(recs), nil
}

// decode converts a generic remote payload into T through JSON.
func decode[T any](payload any) (T, error) {
	var v T
	data, err := json.Marshal(payload)
	if err != nil {
		return v, ferrors.WrapWithCode(err, ferrors.ErrCodeRemoteQuery, "encode remote payload")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, ferrors.WrapWithCode(err, ferrors.ErrCodeRemoteQuery, "decode remote payload")
	}
	return v, nil
}

// Push writes a singleton value back to the remote source: update when the
// record exists, insert with the singleton id otherwise. The payload is
// wrapped in the envelope field when the mapping names one.
//
// Unmapped and private keys yield UNMAPPED_KEY; collection keys sync per
// record through Collection and yield INVALID_INPUT here.
func (b *Binding[T]) Push(ctx context.Context) error {
	if !b.shouldReconcile() {
		return ferrors.Unmapped(b.key)
	}
	if !b.desc.IsObject() {
		return ferrors.InvalidInput("push", "collections sync per record", ferrors.WithKey(b.key))
	}

	rec, err := b.record()
	if err != nil {
		return err
	}

	existing, err := b.deps.Remote.SelectOne(ctx, b.desc.Resource, b.desc.SingletonID)
	if err == nil {
		if existing == nil {
			rec[remote.IDField] = b.desc.SingletonID
			_, err = b.deps.Remote.Insert(ctx, b.desc.Resource, rec)
		} else {
			err = b.deps.Remote.Update(ctx, b.desc.Resource, b.desc.SingletonID, rec)
		}
	}
	if err != nil {
		b.logger.Warn("push failed", map[string]interface{}{
			"key":      b.key,
			"resource": b.desc.Resource,
			"error":    err.Error(),
		})
		return wrapRemote(err, "push "+b.key, b.key, b.desc.Resource)
	}
	return nil
}

// record renders the current value as a remote record.
func (b *Binding[T]) record() (remote.Record, error) {
	data, err := b.JSON()
	if err != nil {
		return nil, err
	}
	if b.desc.Envelope != "" {
		return remote.Record{b.desc.Envelope: json.RawMessage(data)}, nil
	}
	var rec remote.Record
	if err := json.Unmarshal(data, &rec); err != nil || rec == nil {
		return nil, ferrors.InvalidInput("push", "value is not an object", ferrors.WithKey(b.key))
	}
	return rec, nil
}

// wrapRemote tags a remote failure with the key. Plain errors become
// REMOTE_QUERY; structured and context errors keep their codes.
func wrapRemote(err error, message, key, resource string) error {
	if ferrors.AsStructured(err) == nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		err = ferrors.Remote(resource, err)
	}
	return ferrors.Wrap(err, message, ferrors.WithKey(key), ferrors.WithResource(resource))
}

// Shape returns the mapped shape, or "" for local-only keys.
func (b *Binding[T]) Shape() keymap.Shape {
	if !b.mapped {
		return ""
	}
	return b.desc.Shape
}
