package heartbeat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vinayprograms/finserve/bus"
)

// --- Unit Tests ---

func TestSenderConfig_Validate(t *testing.T) {
	mbus := bus.NewMemoryBus(bus.DefaultConfig())
	defer mbus.Close()

	tests := []struct {
		name    string
		cfg     SenderConfig
		wantErr bool
	}{
		{"valid", SenderConfig{Bus: mbus, Instance: "a", Role: RoleResponder}, false},
		{"missing bus", SenderConfig{Instance: "a", Role: RoleResponder}, true},
		{"missing instance", SenderConfig{Bus: mbus, Role: RoleResponder}, true},
		{"missing role", SenderConfig{Bus: mbus, Instance: "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonitorConfig_Validate(t *testing.T) {
	cfg := MonitorConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing bus")
	}
}

func TestUnmarshal(t *testing.T) {
	b, err := Unmarshal([]byte(`{"instance":"a","role":"responder","status":"serving"}`))
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if b.Instance != "a" || b.Role != RoleResponder || b.Status != "serving" {
		t.Errorf("unexpected beat %+v", b)
	}

	if _, err := Unmarshal([]byte(`{"role":"responder"}`)); err == nil {
		t.Error("expected error for beat without instance")
	}
	if _, err := Unmarshal([]byte(`nope`)); err == nil {
		t.Error("expected error for malformed beat")
	}
}

// --- Integration Tests ---

func startMonitor(t *testing.T, mbus bus.MessageBus, timeout time.Duration) *Monitor {
	t.Helper()
	m, err := NewMonitor(MonitorConfig{Bus: mbus, Timeout: timeout, CheckInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewMonitor error: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestSenderMonitor_Alive(t *testing.T) {
	mbus := bus.NewMemoryBus(bus.DefaultConfig())
	defer mbus.Close()
	m := startMonitor(t, mbus, time.Minute)

	s, err := NewSender(SenderConfig{Bus: mbus, Instance: "r1", Role: RoleResponder, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewSender error: %v", err)
	}
	s.SetStatus("serving")
	s.SetMetadata("prefix", "finserve.remote")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	waitFor(t, func() bool { return len(m.Alive(RoleResponder)) == 1 })
	last := m.Last("r1")
	if last.Status != "serving" || last.Metadata["prefix"] != "finserve.remote" {
		t.Errorf("unexpected beat %+v", last)
	}
	if got := m.Alive("other"); len(got) != 0 {
		t.Errorf("role filter leaked %v", got)
	}

	// The final beat removes the instance without waiting for the timeout.
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	waitFor(t, func() bool { return len(m.Alive("")) == 0 })
	if err := s.Stop(); err != ErrNotStarted {
		t.Errorf("second Stop = %v, want ErrNotStarted", err)
	}
}

func TestMonitor_SweepReportsOnce(t *testing.T) {
	mbus := bus.NewMemoryBus(bus.DefaultConfig())
	defer mbus.Close()
	m := startMonitor(t, mbus, time.Second)

	var dead atomic.Int32
	m.OnDead(func(b *Beat) {
		if b.Instance == "r1" {
			dead.Add(1)
		}
	})

	data, _ := (&Beat{Instance: "r1", Role: RoleResponder, Timestamp: time.Now()}).Marshal()
	if err := mbus.Publish(DefaultSubject, data); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	waitFor(t, func() bool { return m.Last("r1") != nil })

	m.sweep(time.Now())
	if dead.Load() != 0 {
		t.Fatal("fresh instance reported dead")
	}

	later := time.Now().Add(time.Minute)
	m.sweep(later)
	m.sweep(later)
	if dead.Load() != 1 {
		t.Errorf("dead callbacks = %d, want 1", dead.Load())
	}
}

func TestMonitor_IgnoresMalformed(t *testing.T) {
	mbus := bus.NewMemoryBus(bus.DefaultConfig())
	defer mbus.Close()
	m := startMonitor(t, mbus, time.Minute)

	_ = mbus.Publish(DefaultSubject, []byte("garbage"))
	_ = mbus.Publish(DefaultSubject, []byte(`{"role":"responder"}`))
	data, _ := (&Beat{Instance: "ok", Role: RoleResponder, Timestamp: time.Now()}).Marshal()
	_ = mbus.Publish(DefaultSubject, data)

	waitFor(t, func() bool { return m.Last("ok") != nil })
	if got := m.Alive(""); len(got) != 1 {
		t.Errorf("Alive = %v, want [ok]", got)
	}
}

func TestMonitor_StopTwice(t *testing.T) {
	mbus := bus.NewMemoryBus(bus.DefaultConfig())
	defer mbus.Close()

	m, _ := NewMonitor(MonitorConfig{Bus: mbus})
	if err := m.Stop(); err != ErrNotStarted {
		t.Errorf("Stop before Start = %v, want ErrNotStarted", err)
	}
}
