package state

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ============================================================================
// Unit tests for nats.go that don't require a NATS server
// ============================================================================

func TestDefaultNATSStoreConfig(t *testing.T) {
	cfg := DefaultNATSStoreConfig()

	if cfg.Bucket != "finserve-cache" {
		t.Errorf("expected bucket 'finserve-cache', got %s", cfg.Bucket)
	}
	if cfg.History != 1 {
		t.Errorf("expected history 1, got %d", cfg.History)
	}
	if cfg.MaxValueSize != 1024*1024 {
		t.Errorf("expected max value size 1MB, got %d", cfg.MaxValueSize)
	}
	if cfg.OpTimeout != 5*time.Second {
		t.Errorf("expected op timeout 5s, got %v", cfg.OpTimeout)
	}
}

func TestNewNATSStore_NilConn(t *testing.T) {
	_, err := NewNATSStore(NATSStoreConfig{Bucket: "test"})
	if err == nil {
		t.Error("expected error for nil connection")
	}
}

func TestOpFromNATS(t *testing.T) {
	tests := []struct {
		op   jetstream.KeyValueOp
		want Operation
	}{
		{jetstream.KeyValuePut, OpPut},
		{jetstream.KeyValueDelete, OpDelete},
		{jetstream.KeyValuePurge, OpDelete},
	}
	for _, tt := range tests {
		if got := opFromNATS(tt.op); got != tt.want {
			t.Errorf("opFromNATS(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestNATSPattern(t *testing.T) {
	tests := map[string]string{
		"":               ">",
		"*":              ">",
		"finserve_*":     ">",
		"finserve_users": "finserve_users",
	}
	for in, want := range tests {
		if got := natsPattern(in); got != want {
			t.Errorf("natsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
