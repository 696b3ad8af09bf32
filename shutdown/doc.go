// Package shutdown stops the service's components in dependency order.
//
// Components register in one of four phases. Lower phases stop first and
// handlers within a phase stop concurrently:
//
//	PhaseHTTP      10  stop accepting requests, close websocket watchers
//	PhaseBindings  20  close open bindings so no further cache writes happen
//	PhaseRemote    30  stop bus responders, drain the audit journal, close NATS
//	PhaseCache     40  close the durable cache
//
// Usage:
//
//	coord := shutdown.NewCoordinator(shutdown.DefaultConfig())
//	coord.Register("http", shutdown.PhaseHTTP, shutdown.HandlerFunc(srv.Shutdown))
//	coord.Register("cache", shutdown.PhaseCache, shutdown.Closer(store))
//	stop := coord.HandleSignals()
//	defer stop()
//	<-coord.Done()
package shutdown
