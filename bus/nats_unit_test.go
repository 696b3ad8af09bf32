package bus

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestDefaultNATSConfig(t *testing.T) {
	cfg := DefaultNATSConfig()

	if cfg.URL != nats.DefaultURL {
		t.Errorf("expected default URL, got %s", cfg.URL)
	}
	if cfg.BufferSize != 256 {
		t.Errorf("expected buffer 256, got %d", cfg.BufferSize)
	}
	if cfg.MaxReconnects != -1 {
		t.Errorf("expected unlimited reconnects, got %d", cfg.MaxReconnects)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("expected 5s connect timeout, got %v", cfg.ConnectTimeout)
	}
}

func TestBuildNATSOptions(t *testing.T) {
	cfg := DefaultNATSConfig()
	base := len(buildNATSOptions(cfg))

	cfg.Token = "t"
	cfg.User = "u"
	cfg.Password = "p"
	if got := len(buildNATSOptions(cfg)); got != base+2 {
		t.Errorf("expected %d options, got %d", base+2, got)
	}
}
