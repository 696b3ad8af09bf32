//go:build integration

package state

import (
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

// getNATSURL returns the NATS URL from environment or default.
func getNATSURL() string {
	if url := os.Getenv("NATS_URL"); url != "" {
		return url
	}
	return nats.DefaultURL
}

// newTestNATSStore creates a NATSStore for testing.
func newTestNATSStore(t *testing.T, bucket string) *NATSStore {
	conn, err := nats.Connect(getNATSURL())
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}

	store, err := NewNATSStore(NATSStoreConfig{
		Conn:   conn,
		Bucket: bucket,
	})
	if err != nil {
		conn.Close()
		t.Fatalf("NewNATSStore failed: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		conn.Close()
	})

	return store
}

func TestNATSStore_PutGetDelete(t *testing.T) {
	s := newTestNATSStore(t, "test-finserve-putget")

	if _, err := s.Get("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put("finserve_users", []byte("[]")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("finserve_users")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("expected [], got %s", got)
	}
	if err := s.Delete("finserve_users"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("finserve_users"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNATSStore_Watch(t *testing.T) {
	s := newTestNATSStore(t, "test-finserve-watch")

	ch, err := s.Watch("finserve_*")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := s.Put("finserve_settings", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case kv := <-ch:
		if kv.Key != "finserve_settings" {
			t.Errorf("unexpected key %s", kv.Key)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
