package remote

import (
	"context"
	"errors"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/ratelimit"
)

// Throttled decorates a Source with a rate limiter. Every call takes a token
// from one bucket; a QUOTA_EXCEEDED answer shrinks that bucket.
type Throttled struct {
	next    Source
	limiter ratelimit.Limiter
	bucket  string
}

// Throttle wraps next. The bucket must already have a capacity on limiter.
func Throttle(next Source, limiter ratelimit.Limiter, bucket string) *Throttled {
	return &Throttled{next: next, limiter: limiter, bucket: bucket}
}

// Unwrap returns the decorated source.
func (s *Throttled) Unwrap() Source { return s.next }

func (s *Throttled) call(ctx context.Context, resource string, fn func(context.Context) error) error {
	if err := s.limiter.Acquire(ctx, s.bucket); err != nil {
		return limiterError(resource, err)
	}
	defer s.limiter.Release(s.bucket)

	err := fn(ctx)
	if ferrors.Is(err, ferrors.ErrCodeQuotaExceeded) {
		s.limiter.Reduce(s.bucket, err.Error())
	}
	return err
}

func limiterError(resource string, err error) error {
	code := ferrors.ErrCodeUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ferrors.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = ferrors.ErrCodeCanceled
	}
	return ferrors.WrapWithCode(err, code, "rate limit", ferrors.WithResource(resource))
}

func (s *Throttled) SelectAll(ctx context.Context, resource string) ([]Record, error) {
	var out []Record
	err := s.call(ctx, resource, func(ctx context.Context) error {
		var err error
		out, err = s.next.SelectAll(ctx, resource)
		return err
	})
	return out, err
}

func (s *Throttled) SelectOne(ctx context.Context, resource, id string) (Record, error) {
	var out Record
	err := s.call(ctx, resource, func(ctx context.Context) error {
		var err error
		out, err = s.next.SelectOne(ctx, resource, id)
		return err
	})
	return out, err
}

func (s *Throttled) Insert(ctx context.Context, resource string, rec Record) (Record, error) {
	var out Record
	err := s.call(ctx, resource, func(ctx context.Context) error {
		var err error
		out, err = s.next.Insert(ctx, resource, rec)
		return err
	})
	return out, err
}

func (s *Throttled) Update(ctx context.Context, resource, id string, partial Record) error {
	return s.call(ctx, resource, func(ctx context.Context) error {
		return s.next.Update(ctx, resource, id, partial)
	})
}

func (s *Throttled) Delete(ctx context.Context, resource, id string) error {
	return s.call(ctx, resource, func(ctx context.Context) error {
		return s.next.Delete(ctx, resource, id)
	})
}
