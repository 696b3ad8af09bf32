package ratelimit

import (
	"context"
	"sync"
	"time"
)

// reduceFactor is applied by MemoryLimiter.Reduce.
const reduceFactor = 0.75

type bucket struct {
	capacity   int
	available  int
	window     time.Duration
	lastRefill time.Time
	inFlight   int
}

// refill adds the tokens earned since lastRefill.
func (b *bucket) refill(now time.Time) {
	if b.window <= 0 || b.capacity <= 0 {
		return
	}
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	earned := int(float64(b.capacity) * float64(elapsed) / float64(b.window))
	if earned == 0 {
		return
	}
	b.available = min(b.available+earned, b.capacity)
	b.lastRefill = now
}

// interval is the time one token takes to refill.
func (b *bucket) interval() time.Duration {
	return b.window / time.Duration(b.capacity)
}

// MemoryLimiter is a per-process token bucket limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
	closing chan struct{}
	now     func() time.Time
}

// NewMemoryLimiter creates an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		closing: make(chan struct{}),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) SetCapacity(name string, capacity int, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if capacity <= 0 || window <= 0 {
		delete(m.buckets, name)
		return
	}
	if b, ok := m.buckets[name]; ok {
		b.refill(m.now())
		b.capacity = capacity
		b.window = window
		b.available = min(b.available, capacity)
		return
	}
	m.buckets[name] = &bucket{
		capacity:   capacity,
		available:  capacity,
		window:     window,
		lastRefill: m.now(),
	}
}

func (m *MemoryLimiter) Capacity(name string) *Capacity {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[name]
	if !ok {
		return nil
	}
	b.refill(m.now())
	return &Capacity{
		Bucket:    name,
		Available: b.available,
		Total:     b.capacity,
		Window:    b.window,
		InFlight:  b.inFlight,
	}
}

// take tries to consume a token. When none is left it returns how long the
// next one takes.
func (m *MemoryLimiter) take(name string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	b, ok := m.buckets[name]
	if !ok {
		return 0, ErrUnknownBucket
	}
	b.refill(m.now())
	if b.available > 0 {
		b.available--
		b.inFlight++
		return 0, nil
	}
	wait := b.interval() - m.now().Sub(b.lastRefill)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, nil
}

func (m *MemoryLimiter) Acquire(ctx context.Context, name string) error {
	for {
		wait, err := m.take(name)
		if err != nil || wait == 0 {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-m.closing:
			timer.Stop()
			return ErrClosed
		case <-timer.C:
		}
	}
}

func (m *MemoryLimiter) TryAcquire(name string) bool {
	wait, err := m.take(name)
	return err == nil && wait == 0
}

func (m *MemoryLimiter) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[name]; ok && b.inFlight > 0 {
		b.inFlight--
	}
}

// Reduce cuts the bucket to three quarters of its capacity, never below one.
// The reason is only meaningful to distributed limiters.
func (m *MemoryLimiter) Reduce(name, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[name]; ok {
		m.shrink(b, int(float64(b.capacity)*reduceFactor))
	}
}

func (m *MemoryLimiter) shrink(b *bucket, capacity int) {
	b.refill(m.now())
	b.capacity = max(capacity, 1)
	b.available = min(b.available, b.capacity)
}

// Close wakes every blocked Acquire with ErrClosed.
func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	close(m.closing)
	return nil
}

var _ Limiter = (*MemoryLimiter)(nil)
