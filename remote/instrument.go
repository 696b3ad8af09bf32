package remote

import (
	"context"
	"time"

	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/telemetry"
)

// Observer receives one sample per remote call.
type Observer interface {
	ObserveRemote(op, resource string, elapsed time.Duration, err error)
}

// Instrumented decorates a Source with logging, tracing and metrics.
type Instrumented struct {
	next     Source
	logger   *logging.Logger
	tracer   *telemetry.Tracer
	observer Observer
}

// Instrument wraps next. Nil collaborators are replaced with no-ops.
func Instrument(next Source, logger *logging.Logger, tracer *telemetry.Tracer, observer Observer) *Instrumented {
	if logger == nil {
		logger = logging.Discard()
	}
	if tracer == nil {
		tracer = telemetry.GetTracer()
	}
	return &Instrumented{next: next, logger: logger.WithComponent("remote"), tracer: tracer, observer: observer}
}

// Unwrap returns the decorated source.
func (s *Instrumented) Unwrap() Source { return s.next }

func (s *Instrumented) observe(ctx context.Context, op, resource string, fn func(context.Context) (int, error)) error {
	ctx, span := s.tracer.StartRemoteSpan(ctx, op, resource)
	start := time.Now()
	n, err := fn(ctx)
	elapsed := time.Since(start)

	s.tracer.EndRemoteSpan(span, n, err)
	s.logger.RemoteCall(op, resource, elapsed, err)
	if s.observer != nil {
		s.observer.ObserveRemote(op, resource, elapsed, err)
	}
	return err
}

func (s *Instrumented) SelectAll(ctx context.Context, resource string) ([]Record, error) {
	var out []Record
	err := s.observe(ctx, OpSelectAll, resource, func(ctx context.Context) (int, error) {
		var err error
		out, err = s.next.SelectAll(ctx, resource)
		return len(out), err
	})
	return out, err
}

func (s *Instrumented) SelectOne(ctx context.Context, resource, id string) (Record, error) {
	var out Record
	err := s.observe(ctx, OpSelectOne, resource, func(ctx context.Context) (int, error) {
		var err error
		out, err = s.next.SelectOne(ctx, resource, id)
		if out == nil {
			return 0, err
		}
		return 1, err
	})
	return out, err
}

func (s *Instrumented) Insert(ctx context.Context, resource string, rec Record) (Record, error) {
	var out Record
	err := s.observe(ctx, OpInsert, resource, func(ctx context.Context) (int, error) {
		var err error
		out, err = s.next.Insert(ctx, resource, rec)
		return 1, err
	})
	return out, err
}

func (s *Instrumented) Update(ctx context.Context, resource, id string, partial Record) error {
	return s.observe(ctx, OpUpdate, resource, func(ctx context.Context) (int, error) {
		return 1, s.next.Update(ctx, resource, id, partial)
	})
}

func (s *Instrumented) Delete(ctx context.Context, resource, id string) error {
	return s.observe(ctx, OpDelete, resource, func(ctx context.Context) (int, error) {
		return 1, s.next.Delete(ctx, resource, id)
	})
}
