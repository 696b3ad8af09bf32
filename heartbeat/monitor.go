package heartbeat

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/finserve/bus"
)

// Monitor tracks the last beat of every instance and reports the ones that
// fall silent.
type Monitor struct {
	bus           bus.MessageBus
	subject       string
	timeout       time.Duration
	checkInterval time.Duration

	mu       sync.RWMutex
	lastSeen map[string]*Beat
	reported map[string]bool
	deadCBs  []func(*Beat)

	running atomic.Bool
	sub     bus.Subscription
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a monitor. Call Start to begin receiving.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultMonitorConfig()
	if cfg.Subject == "" {
		cfg.Subject = def.Subject
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	return &Monitor{
		bus:           cfg.Bus,
		subject:       cfg.Subject,
		timeout:       cfg.Timeout,
		checkInterval: cfg.CheckInterval,
		lastSeen:      make(map[string]*Beat),
		reported:      make(map[string]bool),
	}, nil
}

// Start subscribes and runs the sweep.
func (m *Monitor) Start() error {
	if m.running.Swap(true) {
		return ErrAlreadyStarted
	}
	sub, err := m.bus.Subscribe(m.subject)
	if err != nil {
		m.running.Store(false)
		return err
	}
	m.sub = sub
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run()
	return nil
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case msg, ok := <-m.sub.Messages():
			if !ok {
				return
			}
			m.receive(msg)
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Monitor) receive(msg *bus.Message) {
	b, err := Unmarshal(msg.Data)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Status == "stopping" {
		delete(m.lastSeen, b.Instance)
		delete(m.reported, b.Instance)
		return
	}
	m.lastSeen[b.Instance] = b
	delete(m.reported, b.Instance)
}

// sweep reports each instance silent for longer than the timeout once.
func (m *Monitor) sweep(now time.Time) {
	var dead []*Beat
	m.mu.Lock()
	for id, b := range m.lastSeen {
		if now.Sub(b.Timestamp) > m.timeout && !m.reported[id] {
			m.reported[id] = true
			dead = append(dead, b)
		}
	}
	callbacks := append([]func(*Beat){}, m.deadCBs...)
	m.mu.Unlock()

	for _, b := range dead {
		for _, cb := range callbacks {
			cb(b)
		}
	}
}

// Alive returns the instances of role seen within the timeout, sorted.
// An empty role matches every instance.
func (m *Monitor) Alive(role string) []string {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, b := range m.lastSeen {
		if role != "" && b.Role != role {
			continue
		}
		if now.Sub(b.Timestamp) <= m.timeout {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Last returns the most recent beat from instance, or nil.
func (m *Monitor) Last(instance string) *Beat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeen[instance]
}

// OnDead registers a callback for instances presumed dead.
func (m *Monitor) OnDead(cb func(*Beat)) {
	m.mu.Lock()
	m.deadCBs = append(m.deadCBs, cb)
	m.mu.Unlock()
}

// Stop unsubscribes and halts the sweep.
func (m *Monitor) Stop() error {
	if !m.running.Swap(false) {
		return ErrNotStarted
	}
	_ = m.sub.Unsubscribe()
	close(m.stopCh)
	<-m.doneCh
	return nil
}
