package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/vinayprograms/finserve/server"
	"github.com/vinayprograms/finserve/shutdown"
)

// ServeCmd runs the HTTP API until SIGINT or SIGTERM.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.addr)"`
}

func (s *ServeCmd) Run(g *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, g, appOptions{metrics: true, serve: true})
	if err != nil {
		return err
	}
	addr := a.cfg.Server.Addr
	if s.Addr != "" {
		addr = s.Addr
	}

	router := server.NewRouter()
	opts := server.Options{
		Pool:          a.pool,
		Identity:      a.identity,
		Metrics:       a.metrics,
		Registry:      a.registry,
		Tracer:        a.tracer,
		Journal:       a.journal,
		Logger:        a.logger,
		ReconcileWait: a.cfg.Server.ReconcileWait.Duration,
	}
	if a.responders != nil {
		opts.Liveness = a.responders
	}
	api := server.New(opts, router)
	if err := api.Start(ctx); err != nil {
		_ = a.Close()
		return fmt.Errorf("watch cache: %w", err)
	}

	scheduler, err := scheduleJournalFlush(a)
	if err != nil {
		_ = a.Close()
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = a.Close()
		return err
	}
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	a.coord.Register("http", shutdown.PhaseHTTP, shutdown.HandlerFunc(func(ctx context.Context) error {
		cancel()
		_ = api.Close()
		return srv.Shutdown(ctx)
	}))
	a.coord.Register("journal-flush", shutdown.PhaseHTTP, shutdown.HandlerFunc(func(context.Context) error {
		return scheduler.Shutdown()
	}))
	stop := a.coord.HandleSignals()
	defer stop()

	a.logger.Info("listening", map[string]interface{}{
		"addr":   ln.Addr().String(),
		"cache":  a.cfg.Cache.Backend,
		"remote": a.cfg.Remote.Kind,
	})
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = a.Close()
			return err
		}
	case <-a.coord.Done():
	}
	<-a.coord.Done()

	res := a.coord.Result()
	a.logger.Info("stopped", map[string]interface{}{"duration": res.TotalDuration.String()})
	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("shutdown: %v failed", failed)
	}
	return nil
}

// scheduleJournalFlush flushes buffered audit events on the configured
// interval.
func scheduleJournalFlush(a *app) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	interval := a.cfg.Telemetry.FlushInterval.Duration
	if interval <= 0 {
		interval = 30 * time.Second
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := a.journal.Flush(); err != nil {
				a.logger.Warn("journal flush failed", map[string]interface{}{"error": err.Error()})
			}
		}),
		gocron.WithName("journal-flush"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule journal flush: %w", err)
	}
	s.Start()
	return s, nil
}
