// Package ratelimit paces calls to the remote data source.
//
// MemoryLimiter is a per-process token bucket:
//
//	limiter := ratelimit.NewMemoryLimiter()
//	limiter.SetCapacity("remote", 120, time.Minute)
//
//	if err := limiter.Acquire(ctx, "remote"); err != nil {
//	    return err
//	}
//	defer limiter.Release("remote")
//
// DistributedLimiter shares reductions over the message bus, so when one
// process is throttled by the remote source every process backs off:
//
//	limiter, err := ratelimit.NewDistributedLimiter(ratelimit.DistributedConfig{Bus: nbus})
//	limiter.SetCapacity("remote", 120, time.Minute)
//	limiter.Reduce("remote", "status 429")
//
// Reduced buckets grow back by RecoveryFactor every RecoveryInterval until
// they reach the configured capacity.
package ratelimit
