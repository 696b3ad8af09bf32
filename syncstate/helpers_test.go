package syncstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/remote"
	"github.com/vinayprograms/finserve/state"
)

var errRemoteDown = errors.New("remote down")

// failingRemote fails every call.
type failingRemote struct{}

func (failingRemote) SelectAll(context.Context, string) ([]remote.Record, error) {
	return nil, errRemoteDown
}
func (failingRemote) SelectOne(context.Context, string, string) (remote.Record, error) {
	return nil, errRemoteDown
}
func (failingRemote) Insert(context.Context, string, remote.Record) (remote.Record, error) {
	return nil, errRemoteDown
}
func (failingRemote) Update(context.Context, string, string, remote.Record) error {
	return errRemoteDown
}
func (failingRemote) Delete(context.Context, string, string) error { return errRemoteDown }

// countingRemote counts queries and answers from an inner source.
type countingRemote struct {
	remote.Source
	queries atomic.Int32
}

func (c *countingRemote) SelectAll(ctx context.Context, resource string) ([]remote.Record, error) {
	c.queries.Add(1)
	return c.Source.SelectAll(ctx, resource)
}

func (c *countingRemote) SelectOne(ctx context.Context, resource, id string) (remote.Record, error) {
	c.queries.Add(1)
	return c.Source.SelectOne(ctx, resource, id)
}

// gatedRemote blocks selects until release is closed.
type gatedRemote struct {
	remote.Source
	release chan struct{}
}

func newGatedRemote(inner remote.Source) *gatedRemote {
	return &gatedRemote{Source: inner, release: make(chan struct{})}
}

func (g *gatedRemote) SelectAll(ctx context.Context, resource string) ([]remote.Record, error) {
	<-g.release
	return g.Source.SelectAll(ctx, resource)
}

func (g *gatedRemote) SelectOne(ctx context.Context, resource, id string) (remote.Record, error) {
	<-g.release
	return g.Source.SelectOne(ctx, resource, id)
}

// brokenCache fails reads with a non-NotFound error and optionally writes.
type brokenCache struct {
	*state.MemoryStore
	failPut bool
}

func (b *brokenCache) Get(string) ([]byte, error) { return nil, errors.New("disk on fire") }

func (b *brokenCache) Put(key string, value []byte) error {
	if b.failPut {
		return errors.New("disk full")
	}
	return b.MemoryStore.Put(key, value)
}

// fakeRecorder captures reconcile outcomes and binding counts.
type fakeRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	cacheErrors map[string]int
	open        int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{cacheErrors: make(map[string]int)}
}

func (f *fakeRecorder) ObserveReconcile(_ string, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeRecorder) IncCacheError(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheErrors[op]++
}

func (f *fakeRecorder) ObserveRemote(string, string, time.Duration, error) {}
func (f *fakeRecorder) ObserveRequest(string, string, int, time.Duration)  {}

func (f *fakeRecorder) AddOpenBindings(delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open += delta
}

func (f *fakeRecorder) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.outcomes...), f.open
}

// scenarioMapper maps the short keys used in the profile and transaction
// scenarios.
func scenarioMapper() *keymap.Mapper {
	return keymap.New(
		keymap.Rule{Prefix: "profile", Descriptor: keymap.Descriptor{
			Resource: "client_data", Shape: keymap.ShapeObject, SingletonID: "1", Envelope: "data",
		}},
		keymap.Rule{Prefix: "transactions", Descriptor: keymap.Descriptor{
			Resource: "transactions", Shape: keymap.ShapeCollection,
		}},
	)
}

func waitDone(t interface {
	Helper()
	Fatal(args ...any)
}, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciliation did not finish")
	}
}
