package heartbeat

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/finserve/bus"
)

// Sender publishes beats at a fixed interval.
type Sender struct {
	bus      bus.MessageBus
	subject  string
	instance string
	role     string
	interval time.Duration

	mu       sync.RWMutex
	status   string
	metadata map[string]string

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSender creates a sender. Nothing is published until Start.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultSenderConfig()
	if cfg.Subject == "" {
		cfg.Subject = def.Subject
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.InitialStatus == "" {
		cfg.InitialStatus = def.InitialStatus
	}
	return &Sender{
		bus:      cfg.Bus,
		subject:  cfg.Subject,
		instance: cfg.Instance,
		role:     cfg.Role,
		interval: cfg.Interval,
		status:   cfg.InitialStatus,
		metadata: make(map[string]string),
	}, nil
}

// Start publishes one beat immediately, then one per interval until ctx ends
// or Stop is called.
func (s *Sender) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return ErrAlreadyStarted
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *Sender) run(ctx context.Context) {
	defer close(s.doneCh)

	_ = s.send()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			_ = s.send()
		}
	}
}

func (s *Sender) send() error {
	data, err := s.beat().Marshal()
	if err != nil {
		return err
	}
	return s.bus.Publish(s.subject, data)
}

func (s *Sender) beat() *Beat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := &Beat{
		Instance:  s.instance,
		Role:      s.role,
		Timestamp: time.Now(),
		Status:    s.status,
	}
	if len(s.metadata) > 0 {
		b.Metadata = maps.Clone(s.metadata)
	}
	return b
}

// SetStatus changes the status carried by later beats.
func (s *Sender) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// SetMetadata sets a metadata field carried by later beats.
func (s *Sender) SetMetadata(key, value string) {
	s.mu.Lock()
	s.metadata[key] = value
	s.mu.Unlock()
}

// Stop publishes a final "stopping" beat and halts the loop.
func (s *Sender) Stop() error {
	if !s.running.Swap(false) {
		return ErrNotStarted
	}
	close(s.stopCh)
	<-s.doneCh
	s.SetStatus("stopping")
	return s.send()
}

// Instance returns the id stamped on every beat.
func (s *Sender) Instance() string { return s.instance }
