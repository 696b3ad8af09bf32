package syncstate

import (
	"time"

	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/metrics"
	"github.com/vinayprograms/finserve/remote"
	"github.com/vinayprograms/finserve/state"
	"github.com/vinayprograms/finserve/telemetry"
)

// Deps are the collaborators shared by every binding.
type Deps struct {
	// Cache is the durable cache. Default: a fresh state.MemoryStore.
	Cache state.StateStore

	// Remote is the remote source. Default: remote.StubSource.
	Remote remote.Source

	// Mapper resolves keys to remote resources. Default: keymap.DefaultMapper.
	Mapper *keymap.Mapper

	Logger  *logging.Logger
	Metrics metrics.Recorder
	Tracer  *telemetry.Tracer

	// ReconcileTimeout bounds the remote query when positive. Zero leaves
	// timeouts to the remote source.
	ReconcileTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = state.NewMemoryStore()
	}
	if d.Remote == nil {
		d.Remote = remote.NewStubSource()
	}
	if d.Mapper == nil {
		d.Mapper = keymap.DefaultMapper()
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NoopRecorder{}
	}
	if d.Tracer == nil {
		d.Tracer = telemetry.GetTracer()
	}
	return d
}
