package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements StateStore using a NATS JetStream KV bucket. Several
// processes pointing at the same bucket share one durable namespace; the last
// write wins.
type NATSStore struct {
	conn   *nats.Conn
	kv     jetstream.KeyValue
	config NATSStoreConfig
	closed atomic.Bool

	mu       sync.Mutex
	watchers []jetstream.KeyWatcher
}

// NATSStoreConfig holds NATS KV store configuration.
type NATSStoreConfig struct {
	// Conn is the NATS connection to use.
	Conn *nats.Conn

	// Bucket is the KV bucket name.
	Bucket string

	// History is the number of revisions to keep per key.
	// Default: 1
	History int

	// MaxValueSize is the maximum value size in bytes.
	// Default: 1MB
	MaxValueSize int32

	// OpTimeout bounds each KV call.
	// Default: 5s
	OpTimeout time.Duration
}

// DefaultNATSStoreConfig returns configuration with sensible defaults.
func DefaultNATSStoreConfig() NATSStoreConfig {
	return NATSStoreConfig{
		Bucket:       "finserve-cache",
		History:      1,
		MaxValueSize: 1024 * 1024,
		OpTimeout:    5 * time.Second,
	}
}

// NewNATSStore binds to (creating if needed) the configured KV bucket.
func NewNATSStore(cfg NATSStoreConfig) (*NATSStore, error) {
	if cfg.Conn == nil {
		return nil, fmt.Errorf("nats connection required")
	}
	def := DefaultNATSStoreConfig()
	if cfg.Bucket == "" {
		cfg.Bucket = def.Bucket
	}
	if cfg.History <= 0 {
		cfg.History = def.History
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = def.MaxValueSize
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = def.OpTimeout
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:       cfg.Bucket,
		History:      uint8(cfg.History),
		MaxValueSize: cfg.MaxValueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}

	return &NATSStore{conn: cfg.Conn, kv: kv, config: cfg}, nil
}

func (s *NATSStore) opContext() (context.Context, context.CancelFunc) {
	timeout := s.config.OpTimeout
	if timeout <= 0 {
		timeout = DefaultNATSStoreConfig().OpTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Get retrieves a value by key.
func (s *NATSStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv get: %w", err)
	}
	return entry.Value(), nil
}

// opFromNATS converts a NATS KV operation to an Operation.
func opFromNATS(op jetstream.KeyValueOp) Operation {
	switch op {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		return OpDelete
	default:
		return OpPut
	}
}

// Put stores a value.
func (s *NATSStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *NATSStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// Keys returns all keys matching a pattern.
func (s *NATSStore) Keys(pattern string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv list keys: %w", err)
	}

	var keys []string
	for key := range lister.Keys() {
		if MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// natsPattern converts a trailing-* pattern into a NATS subject filter.
// Keys are single tokens, so only "everything" can use the > wildcard; other
// patterns are filtered client-side.
func natsPattern(pattern string) string {
	if pattern == "" || pattern == "*" || strings.HasSuffix(pattern, "*") {
		return ">"
	}
	return pattern
}

// Watch streams changes to keys matching pattern, including writes made by
// other processes sharing the bucket.
func (s *NATSStore) Watch(pattern string) (<-chan *KeyValue, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx := context.Background()
	var (
		w   jetstream.KeyWatcher
		err error
	)
	if np := natsPattern(pattern); np == ">" {
		w, err = s.kv.WatchAll(ctx, jetstream.UpdatesOnly())
	} else {
		w, err = s.kv.Watch(ctx, np, jetstream.UpdatesOnly())
	}
	if err != nil {
		return nil, fmt.Errorf("kv watch: %w", err)
	}

	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	ch := make(chan *KeyValue, 64)
	go s.watchLoop(w, ch, pattern)
	return ch, nil
}

func (s *NATSStore) watchLoop(w jetstream.KeyWatcher, ch chan *KeyValue, pattern string) {
	defer close(ch)

	for entry := range w.Updates() {
		if s.closed.Load() {
			return
		}
		if entry == nil || !MatchPattern(pattern, entry.Key()) {
			continue
		}
		kv := &KeyValue{
			Key:       entry.Key(),
			Value:     entry.Value(),
			Revision:  entry.Revision(),
			Operation: opFromNATS(entry.Operation()),
			Modified:  entry.Created(),
		}
		select {
		case ch <- kv:
		default:
		}
	}
}

// Close stops all watchers. The connection is owned by the caller.
func (s *NATSStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		_ = w.Stop()
	}
	s.watchers = nil
	return nil
}
