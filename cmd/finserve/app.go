package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/vinayprograms/finserve/bus"
	"github.com/vinayprograms/finserve/config"
	"github.com/vinayprograms/finserve/credentials"
	"github.com/vinayprograms/finserve/heartbeat"
	"github.com/vinayprograms/finserve/identity"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/metrics"
	"github.com/vinayprograms/finserve/ratelimit"
	"github.com/vinayprograms/finserve/remote"
	"github.com/vinayprograms/finserve/shutdown"
	"github.com/vinayprograms/finserve/state"
	"github.com/vinayprograms/finserve/syncstate"
	"github.com/vinayprograms/finserve/telemetry"
)

// app holds everything a command needs. Components are registered with the
// coordinator as they are built, so Close tears down whatever exists.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	coord  *shutdown.Coordinator

	creds    *credentials.Credentials
	conn     *nats.Conn
	natsBus  *bus.NATSBus
	cache    state.StateStore
	source   remote.Source
	registry *prom.Registry
	metrics  metrics.Recorder
	tracer   *telemetry.Tracer
	journal  telemetry.Journal
	pool     *syncstate.Pool
	identity *identity.Provider

	responders *heartbeat.Monitor // bus remote only
}

type appOptions struct {
	metrics bool // expose a Prometheus registry
	serve   bool // answer bus requests when configured
}

func newApp(ctx context.Context, g *Globals, opts appOptions) (a *app, err error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	logger := logging.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
	if g.Verbose {
		logger.SetLevel(logging.LevelDebug)
	}

	a = &app{
		cfg:    cfg,
		logger: logger,
		coord: shutdown.NewCoordinator(shutdown.Config{
			Timeout:         shutdown.DefaultConfig().Timeout,
			ContinueOnError: true,
			Logger:          logger,
		}),
		metrics: metrics.NoopRecorder{},
		tracer:  telemetry.NoopTracer(),
		journal: telemetry.NewNoopJournal(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	creds, path, err := credentials.Load()
	if err != nil {
		return a, fmt.Errorf("credentials: %w", err)
	}
	if path != "" {
		logger.Debug("credentials loaded", map[string]interface{}{"path": path})
	}
	a.creds = creds

	if err = a.initTelemetry(ctx); err != nil {
		return a, err
	}
	if opts.metrics {
		a.registry = metrics.NewRegistry()
		a.metrics = metrics.NewPrometheusRecorder(a.registry)
	}
	if cfg.NeedsNATS() {
		if err = a.connectNATS(); err != nil {
			return a, err
		}
	}
	if err = a.openCache(); err != nil {
		return a, err
	}
	if err = a.openRemote(); err != nil {
		return a, err
	}
	if opts.serve && cfg.Remote.Serve {
		if err = a.startResponder(ctx); err != nil {
			return a, err
		}
	}

	deps := syncstate.Deps{
		Cache:            a.cache,
		Remote:           a.source,
		Mapper:           keymap.DefaultMapper(),
		Logger:           logger,
		Metrics:          a.metrics,
		Tracer:           a.tracer,
		ReconcileTimeout: cfg.Remote.Timeout.Duration,
	}
	a.pool = syncstate.NewPool(ctx, deps, syncstate.PrependTo("transactions"))
	a.identity = identity.NewProvider(ctx, a.pool.Deps(), cfg.Auth.Admins)
	a.coord.Register("bindings", shutdown.PhaseBindings, shutdown.Closer(a.pool))
	a.coord.Register("session", shutdown.PhaseBindings, shutdown.Closer(a.identity))
	return a, nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	tc := a.cfg.Telemetry
	provider, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
		ServiceName:    "finserve",
		ServiceVersion: version,
		Endpoint:       tc.Endpoint,
		Protocol:       tc.Protocol,
		Insecure:       true,
		Debug:          tc.Debug,
		SampleRatio:    tc.SampleRatio,
		Attributes: map[string]string{
			"cache.backend": a.cfg.Cache.Backend,
			"remote.kind":   a.cfg.Remote.Kind,
		},
	})
	switch {
	case errors.Is(err, telemetry.ErrNoEndpoint):
		a.logger.Debug("tracing disabled", nil)
	case err != nil:
		return fmt.Errorf("telemetry: %w", err)
	default:
		a.tracer = provider.Tracer()
		telemetry.SetGlobalTracer(a.tracer)
		a.coord.Register("tracing", shutdown.PhaseTransport, shutdown.HandlerFunc(provider.Shutdown))
	}

	journal, err := telemetry.NewJournal(tc.JournalProtocol, tc.JournalEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.journal = journal
	a.coord.Register("journal", shutdown.PhaseRemote, shutdown.Closer(journal))
	return nil
}

func (a *app) connectNATS() error {
	nc := bus.DefaultNATSConfig()
	nc.URL = a.cfg.NATS.URL
	if a.cfg.NATS.Name != "" {
		nc.Name = a.cfg.NATS.Name
	}
	nc.Token = a.creds.Secret(credentials.ServiceNATS)

	conn, err := bus.Connect(nc)
	if err != nil {
		return err
	}
	a.conn = conn
	a.natsBus = bus.NewNATSBusFromConn(conn, nc)
	a.coord.Register("nats", shutdown.PhaseTransport, shutdown.HandlerFunc(func(context.Context) error {
		return conn.Drain()
	}))
	return nil
}

func (a *app) openCache() error {
	switch a.cfg.Cache.Backend {
	case config.CacheMemory:
		a.cache = state.NewMemoryStore()
	case config.CacheSQLite:
		s, err := state.NewSQLiteStore(a.cfg.Cache.Path)
		if err != nil {
			return err
		}
		a.cache = s
	case config.CacheNATS:
		sc := state.DefaultNATSStoreConfig()
		sc.Conn = a.conn
		if a.cfg.Cache.Bucket != "" {
			sc.Bucket = a.cfg.Cache.Bucket
		}
		s, err := state.NewNATSStore(sc)
		if err != nil {
			return err
		}
		a.cache = s
	default:
		return fmt.Errorf("cache backend %q", a.cfg.Cache.Backend)
	}
	a.coord.Register("cache", shutdown.PhaseCache, shutdown.Closer(a.cache))
	return nil
}

func (a *app) restSource() (remote.Source, error) {
	return remote.NewRESTSource(remote.RESTConfig{
		BaseURL: a.cfg.Remote.BaseURL,
		APIKey:  a.creds.Secret(credentials.ServiceRemote),
		Timeout: a.cfg.Remote.Timeout.Duration,
	})
}

func (a *app) openRemote() error {
	var src remote.Source
	switch a.cfg.Remote.Kind {
	case config.RemoteStub:
		src = remote.NewStubSource()
	case config.RemoteMemory:
		src = remote.NewMemorySource()
	case config.RemoteREST:
		s, err := a.restSource()
		if err != nil {
			return err
		}
		src = s
	case config.RemoteBus:
		if err := a.watchResponders(); err != nil {
			return err
		}
		src = remote.NewBusSource(a.natsBus, a.cfg.Remote.SubjectPrefix)
	default:
		return fmt.Errorf("remote kind %q", a.cfg.Remote.Kind)
	}
	if a.cfg.Remote.RateLimit > 0 {
		limiter, err := a.newLimiter()
		if err != nil {
			return err
		}
		src = remote.Throttle(src, limiter, remoteBucket)
	}
	a.source = remote.Instrument(src, a.logger, a.tracer, a.metrics)
	return nil
}

// remoteBucket is the limiter bucket shared by every remote call.
const remoteBucket = "remote"

// newLimiter builds the remote call limiter. With a NATS connection the
// processes share reductions; otherwise each process limits itself.
func (a *app) newLimiter() (ratelimit.Limiter, error) {
	var limiter ratelimit.Limiter
	if a.natsBus != nil {
		d, err := ratelimit.NewDistributedLimiter(ratelimit.DistributedConfig{
			Bus:    a.natsBus,
			Logger: a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		d.OnCapacityChange(func(u *ratelimit.CapacityUpdate) {
			a.logger.Warn("remote capacity reduced", map[string]interface{}{
				"capacity": u.NewCapacity,
				"peer":     u.Instance,
			})
		})
		limiter = d
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}
	limiter.SetCapacity(remoteBucket, a.cfg.Remote.RateLimit, a.cfg.Remote.RateWindow.Duration)
	a.coord.Register("ratelimit", shutdown.PhaseRemote, shutdown.HandlerFunc(func(context.Context) error {
		return limiter.Close()
	}))
	return limiter, nil
}

// startResponder answers bus requests from the configured REST backend, so
// processes without REST credentials can reach it over NATS.
func (a *app) startResponder(ctx context.Context) error {
	backend, err := a.restSource()
	if err != nil {
		return err
	}
	r := remote.NewResponder(a.natsBus,
		remote.Instrument(backend, a.logger, a.tracer, a.metrics),
		a.cfg.Remote.SubjectPrefix, a.logger)
	if err := r.Start(ctx); err != nil {
		return err
	}
	a.coord.Register("responder", shutdown.PhaseRemote, shutdown.HandlerFunc(func(context.Context) error {
		r.Stop()
		return nil
	}))

	beat, err := heartbeat.NewSender(heartbeat.SenderConfig{
		Bus:      a.natsBus,
		Instance: uuid.NewString(),
		Role:     heartbeat.RoleResponder,
	})
	if err != nil {
		return err
	}
	beat.SetMetadata("prefix", a.cfg.Remote.SubjectPrefix)
	beat.SetStatus("serving")
	if err := beat.Start(ctx); err != nil {
		return err
	}
	a.coord.Register("heartbeat", shutdown.PhaseRemote, shutdown.HandlerFunc(func(context.Context) error {
		return beat.Stop()
	}))
	a.logger.Info("bus responder started", map[string]interface{}{
		"prefix":   a.cfg.Remote.SubjectPrefix,
		"instance": beat.Instance(),
	})
	return nil
}

// watchResponders tracks responder heartbeats for the bus remote.
func (a *app) watchResponders() error {
	m, err := heartbeat.NewMonitor(heartbeat.MonitorConfig{Bus: a.natsBus})
	if err != nil {
		return err
	}
	m.OnDead(func(b *heartbeat.Beat) {
		a.logger.Warn("bus responder silent", map[string]interface{}{"instance": b.Instance})
	})
	if err := m.Start(); err != nil {
		return err
	}
	a.coord.Register("responder-monitor", shutdown.PhaseRemote, shutdown.HandlerFunc(func(context.Context) error {
		return m.Stop()
	}))
	a.responders = m
	return nil
}

// Close stops every registered component in phase order.
func (a *app) Close() error {
	return a.coord.ShutdownWithTimeout()
}
