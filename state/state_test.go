package state

import (
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"finserve_users", true},
		{"finserve_client_data_alexmempowercom", true},
		{"a.b.c", true},
		{"", false},
		{"has space", false},
		{"tab\there", false},
		{"star*", false},
		{"gt>", false},
		{".leading", false},
		{"trailing.", false},
		{strings.Repeat("k", 1025), false},
		{strings.Repeat("k", 1024), true},
	}

	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.valid && err != nil {
			t.Errorf("ValidateKey(%q) = %v, want nil", tt.key, err)
		}
		if !tt.valid && err != ErrInvalidKey {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", tt.key, err)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"", "anything", true},
		{"*", "anything", true},
		{"finserve_*", "finserve_users", true},
		{"finserve_*", "empower_current_user", false},
		{"finserve_users", "finserve_users", true},
		{"finserve_users", "finserve_users_x", false},
	}

	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.key); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
		}
	}
}

func TestOperation_String(t *testing.T) {
	if OpPut.String() != "put" {
		t.Errorf("OpPut = %q", OpPut.String())
	}
	if OpDelete.String() != "delete" {
		t.Errorf("OpDelete = %q", OpDelete.String())
	}
	if Operation(99).String() != "unknown" {
		t.Errorf("unknown op = %q", Operation(99).String())
	}
}

// storeFactories lists the backends that run without external services.
func storeFactories(t *testing.T) map[string]func() StateStore {
	return map[string]func() StateStore{
		"memory": func() StateStore { return NewMemoryStore() },
		"sqlite": func() StateStore {
			s, err := NewSQLiteStore(":memory:")
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			return s
		},
	}
}

// ============================================================================
// Contract tests shared by every local backend
// ============================================================================

func TestStateStore_Contract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("GetMissing", func(t *testing.T) {
				s := factory()
				defer s.Close()
				if _, err := s.Get("missing"); err != ErrNotFound {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			})

			t.Run("PutOverwrite", func(t *testing.T) {
				s := factory()
				defer s.Close()
				if err := s.Put("k", []byte("one")); err != nil {
					t.Fatalf("Put: %v", err)
				}
				if err := s.Put("k", []byte("two")); err != nil {
					t.Fatalf("Put: %v", err)
				}
				got, err := s.Get("k")
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if string(got) != "two" {
					t.Errorf("expected two, got %s", got)
				}
			})

			t.Run("DeleteIdempotent", func(t *testing.T) {
				s := factory()
				defer s.Close()
				_ = s.Put("k", []byte("v"))
				if err := s.Delete("k"); err != nil {
					t.Fatalf("Delete: %v", err)
				}
				if err := s.Delete("k"); err != nil {
					t.Fatalf("second Delete: %v", err)
				}
				if _, err := s.Get("k"); err != ErrNotFound {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			})

			t.Run("Keys", func(t *testing.T) {
				s := factory()
				defer s.Close()
				_ = s.Put("finserve_users", []byte("[]"))
				_ = s.Put("finserve_settings", []byte("{}"))
				_ = s.Put("empower_current_user", []byte("{}"))

				keys, err := s.Keys("finserve_*")
				if err != nil {
					t.Fatalf("Keys: %v", err)
				}
				if len(keys) != 2 {
					t.Errorf("expected 2 keys, got %v", keys)
				}
				all, _ := s.Keys("*")
				if len(all) != 3 {
					t.Errorf("expected 3 keys, got %v", all)
				}
			})

			t.Run("InvalidKey", func(t *testing.T) {
				s := factory()
				defer s.Close()
				if err := s.Put("", []byte("v")); err != ErrInvalidKey {
					t.Errorf("expected ErrInvalidKey, got %v", err)
				}
			})

			t.Run("ValueIsolation", func(t *testing.T) {
				s := factory()
				defer s.Close()
				buf := []byte("abc")
				_ = s.Put("k", buf)
				buf[0] = 'z'
				got, _ := s.Get("k")
				if string(got) != "abc" {
					t.Errorf("stored value aliased caller buffer: %s", got)
				}
			})

			t.Run("Watch", func(t *testing.T) {
				s := factory()
				defer s.Close()
				ch, err := s.Watch("finserve_*")
				if err != nil {
					t.Fatalf("Watch: %v", err)
				}
				_ = s.Put("other", []byte("x"))
				_ = s.Put("finserve_users", []byte("[]"))
				_ = s.Delete("finserve_users")

				kv := <-ch
				if kv.Key != "finserve_users" || kv.Operation != OpPut {
					t.Errorf("unexpected first event %+v", kv)
				}
				kv = <-ch
				if kv.Operation != OpDelete {
					t.Errorf("expected delete, got %v", kv.Operation)
				}
			})

			t.Run("Closed", func(t *testing.T) {
				s := factory()
				ch, _ := s.Watch("*")
				if err := s.Close(); err != nil {
					t.Fatalf("Close: %v", err)
				}
				if _, ok := <-ch; ok {
					t.Error("expected watch channel closed")
				}
				if _, err := s.Get("k"); err != ErrClosed {
					t.Errorf("Get after close: %v", err)
				}
				if err := s.Put("k", nil); err != ErrClosed {
					t.Errorf("Put after close: %v", err)
				}
				if err := s.Close(); err != nil {
					t.Errorf("second Close: %v", err)
				}
			})
		})
	}
}
