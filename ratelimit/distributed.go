package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/finserve/bus"
	"github.com/vinayprograms/finserve/logging"
)

// DistributedConfig configures a DistributedLimiter.
type DistributedConfig struct {
	// Bus carries capacity updates between processes.
	Bus bus.MessageBus

	// Subject is where updates are published.
	// Default: DefaultSubject
	Subject string

	// Instance identifies this process; its own updates are ignored.
	// Default: a random UUID
	Instance string

	// ReduceFactor scales capacity on Reduce (0-1).
	// Default: 0.5
	ReduceFactor float64

	// RecoveryInterval is how often reduced buckets grow back.
	// Default: 30s
	RecoveryInterval time.Duration

	// RecoveryFactor scales capacity on each recovery step (>1).
	// Default: 1.1
	RecoveryFactor float64

	// Logger reports malformed updates. Default: discard.
	Logger *logging.Logger
}

// Validate checks required fields.
func (c *DistributedConfig) Validate() error {
	if c.Bus == nil {
		return ErrInvalidConfig
	}
	if c.ReduceFactor < 0 || c.ReduceFactor >= 1 {
		return ErrInvalidConfig
	}
	if c.RecoveryFactor != 0 && c.RecoveryFactor <= 1 {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultDistributedConfig returns the defaults applied to zero fields.
func DefaultDistributedConfig() DistributedConfig {
	return DistributedConfig{
		Subject:          DefaultSubject,
		ReduceFactor:     0.5,
		RecoveryInterval: 30 * time.Second,
		RecoveryFactor:   1.1,
	}
}

type configured struct {
	capacity int
	window   time.Duration
}

// DistributedLimiter is a MemoryLimiter whose reductions are shared: when
// one process is pushed back by the remote source, every process sharing the
// bus shrinks the same bucket, then all grow back toward the configured
// capacity.
type DistributedLimiter struct {
	cfg    DistributedConfig
	local  *MemoryLimiter
	logger *logging.Logger

	mu         sync.Mutex
	configured map[string]configured
	reducedAt  map[string]time.Time
	onChange   OnCapacityChange

	sub    bus.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDistributedLimiter subscribes to capacity updates and starts recovery.
func NewDistributedLimiter(cfg DistributedConfig) (*DistributedLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultDistributedConfig()
	if cfg.Subject == "" {
		cfg.Subject = def.Subject
	}
	if cfg.Instance == "" {
		cfg.Instance = uuid.NewString()
	}
	if cfg.ReduceFactor == 0 {
		cfg.ReduceFactor = def.ReduceFactor
	}
	if cfg.RecoveryInterval <= 0 {
		cfg.RecoveryInterval = def.RecoveryInterval
	}
	if cfg.RecoveryFactor == 0 {
		cfg.RecoveryFactor = def.RecoveryFactor
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	sub, err := cfg.Bus.Subscribe(cfg.Subject)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &DistributedLimiter{
		cfg:        cfg,
		local:      NewMemoryLimiter(),
		logger:     logger.WithComponent("ratelimit"),
		configured: make(map[string]configured),
		reducedAt:  make(map[string]time.Time),
		sub:        sub,
		cancel:     cancel,
	}
	d.wg.Add(2)
	go d.listen(ctx)
	go d.recover(ctx)
	return d, nil
}

// Instance returns the id stamped on this process's updates.
func (d *DistributedLimiter) Instance() string { return d.cfg.Instance }

func (d *DistributedLimiter) listen(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.sub.Messages():
			if !ok {
				return
			}
			d.apply(msg)
		}
	}
}

func (d *DistributedLimiter) apply(msg *bus.Message) {
	var u CapacityUpdate
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		d.logger.Warn("malformed capacity update", map[string]interface{}{"error": err.Error()})
		return
	}
	if u.Instance == d.cfg.Instance {
		return
	}

	d.mu.Lock()
	c, ok := d.configured[u.Bucket]
	if ok && u.NewCapacity < c.capacity {
		if cur := d.local.Capacity(u.Bucket); cur != nil && u.NewCapacity < cur.Total {
			d.local.SetCapacity(u.Bucket, max(u.NewCapacity, 1), c.window)
			d.reducedAt[u.Bucket] = time.Now()
		}
	}
	cb := d.onChange
	d.mu.Unlock()

	d.logger.Info("capacity reduced by peer", map[string]interface{}{
		"bucket":   u.Bucket,
		"capacity": u.NewCapacity,
		"peer":     u.Instance,
		"reason":   u.Reason,
	})
	if cb != nil {
		cb(&u)
	}
}

func (d *DistributedLimiter) recover(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.RecoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.recoverOnce(time.Now())
		}
	}
}

// recoverOnce grows each bucket reduced at least one interval ago, capped at
// its configured capacity.
func (d *DistributedLimiter) recoverOnce(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, at := range d.reducedAt {
		if now.Sub(at) < d.cfg.RecoveryInterval {
			continue
		}
		c, ok := d.configured[name]
		cur := d.local.Capacity(name)
		if !ok || cur == nil {
			delete(d.reducedAt, name)
			continue
		}
		next := min(max(int(float64(cur.Total)*d.cfg.RecoveryFactor), cur.Total+1), c.capacity)
		d.local.SetCapacity(name, next, c.window)
		if next >= c.capacity {
			delete(d.reducedAt, name)
		}
	}
}

func (d *DistributedLimiter) SetCapacity(name string, capacity int, window time.Duration) {
	d.mu.Lock()
	if capacity > 0 && window > 0 {
		d.configured[name] = configured{capacity: capacity, window: window}
	} else {
		delete(d.configured, name)
	}
	delete(d.reducedAt, name)
	d.mu.Unlock()
	d.local.SetCapacity(name, capacity, window)
}

func (d *DistributedLimiter) Capacity(name string) *Capacity { return d.local.Capacity(name) }

func (d *DistributedLimiter) Acquire(ctx context.Context, name string) error {
	return d.local.Acquire(ctx, name)
}

func (d *DistributedLimiter) TryAcquire(name string) bool { return d.local.TryAcquire(name) }

func (d *DistributedLimiter) Release(name string) { d.local.Release(name) }

// Reduce shrinks the bucket by ReduceFactor and tells the other processes.
func (d *DistributedLimiter) Reduce(name, reason string) {
	d.mu.Lock()
	c, ok := d.configured[name]
	cur := d.local.Capacity(name)
	if !ok || cur == nil {
		d.mu.Unlock()
		return
	}
	next := max(int(float64(cur.Total)*d.cfg.ReduceFactor), 1)
	d.local.SetCapacity(name, next, c.window)
	d.reducedAt[name] = time.Now()
	d.mu.Unlock()

	data, err := json.Marshal(CapacityUpdate{
		Bucket:      name,
		Instance:    d.cfg.Instance,
		NewCapacity: next,
		Reason:      reason,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return
	}
	if err := d.cfg.Bus.Publish(d.cfg.Subject, data); err != nil {
		d.logger.Warn("publish capacity update failed", map[string]interface{}{"error": err.Error()})
	}
}

// OnCapacityChange registers cb for updates received from other processes.
func (d *DistributedLimiter) OnCapacityChange(cb OnCapacityChange) {
	d.mu.Lock()
	d.onChange = cb
	d.mu.Unlock()
}

// Close stops listening and closes the local limiter.
func (d *DistributedLimiter) Close() error {
	d.cancel()
	_ = d.sub.Unsubscribe()
	d.wg.Wait()
	return d.local.Close()
}

var _ Limiter = (*DistributedLimiter)(nil)
