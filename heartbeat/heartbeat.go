package heartbeat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vinayprograms/finserve/bus"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("heartbeat already started")
	ErrNotStarted     = errors.New("heartbeat not started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultSubject carries every beat. Monitors filter by role.
const DefaultSubject = "finserve.heartbeat"

// RoleResponder marks processes answering remote requests over the bus.
const RoleResponder = "responder"

// Beat is one liveness signal.
type Beat struct {
	Instance  string            `json:"instance"`
	Role      string            `json:"role"`
	Timestamp time.Time         `json:"timestamp"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (b *Beat) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// Unmarshal decodes a beat. Beats without an instance are rejected.
func Unmarshal(data []byte) (*Beat, error) {
	var b Beat
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b.Instance == "" {
		return nil, ErrInvalidConfig
	}
	return &b, nil
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	// Bus is where beats are published.
	Bus bus.MessageBus

	// Subject overrides DefaultSubject.
	Subject string

	// Instance identifies this process.
	Instance string

	// Role is what this process does, e.g. RoleResponder.
	Role string

	// Interval between beats.
	// Default: 5 seconds
	Interval time.Duration

	// InitialStatus is the starting status.
	// Default: "starting"
	InitialStatus string
}

// Validate checks the configuration.
func (c *SenderConfig) Validate() error {
	if c.Bus == nil || c.Instance == "" || c.Role == "" {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultSenderConfig returns the defaults applied to zero fields.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Subject:       DefaultSubject,
		Interval:      5 * time.Second,
		InitialStatus: "starting",
	}
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Bus is where beats are received.
	Bus bus.MessageBus

	// Subject overrides DefaultSubject.
	Subject string

	// Timeout after which a silent instance is presumed dead.
	// Should be 2-3x the sender interval.
	// Default: 15 seconds
	Timeout time.Duration

	// CheckInterval for the dead instance sweep.
	// Default: 1 second
	CheckInterval time.Duration
}

// Validate checks the configuration.
func (c *MonitorConfig) Validate() error {
	if c.Bus == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultMonitorConfig returns the defaults applied to zero fields.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Subject:       DefaultSubject,
		Timeout:       15 * time.Second,
		CheckInterval: 1 * time.Second,
	}
}
