package state

import (
	"sync"
	"sync/atomic"
)

// MemoryStore implements StateStore in process memory.
// Useful for testing and single-process demos.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	hub    watchHub
	closed atomic.Bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get retrieves a copy of the value stored under key.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// Put stores a copy of value.
func (s *MemoryStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	val := clone(value)
	s.mu.Lock()
	s.data[key] = val
	s.mu.Unlock()

	s.hub.notify(key, clone(val), OpPut)
	return nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	_, ok := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if ok {
		s.hub.notify(key, nil, OpDelete)
	}
	return nil
}

// Keys returns all keys matching a pattern.
func (s *MemoryStore) Keys(pattern string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.data {
		if MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Watch streams changes to keys matching pattern.
func (s *MemoryStore) Watch(pattern string) (<-chan *KeyValue, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.hub.add(pattern), nil
}

// Close shuts down the store and closes all watch channels.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.hub.close()

	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
