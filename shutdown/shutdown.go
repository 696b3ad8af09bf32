package shutdown

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/vinayprograms/finserve/logging"
)

// Common errors.
var (
	// ErrTimeout indicates shutdown did not complete before the deadline.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more handlers failed.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Phases, stopped in ascending order.
const (
	PhaseHTTP      = 10
	PhaseBindings  = 20
	PhaseRemote    = 30
	PhaseCache     = 40
	PhaseTransport = 50
)

// Handler is implemented by components that need to be stopped.
// The context ends when the shutdown deadline passes.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// Closer adapts an io.Closer to Handler.
func Closer(c io.Closer) Handler {
	return HandlerFunc(func(context.Context) error { return c.Close() })
}

// HandlerResult is the outcome of one handler.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a whole shutdown.
type Result struct {
	TotalDuration time.Duration
	Results       []HandlerResult
	Err           error
}

// Failed returns the names of handlers that returned an error.
func (r *Result) Failed() []string {
	var failed []string
	for _, hr := range r.Results {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

// Config configures the coordinator.
type Config struct {
	// Timeout bounds a signal-triggered shutdown.
	// Default: 30s
	Timeout time.Duration

	// ContinueOnError keeps stopping later phases after a handler fails.
	// Default: true
	ContinueOnError bool

	// Logger receives one line per finished handler. Default: discard.
	Logger *logging.Logger
}

// DefaultConfig returns the configuration used by the server.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		ContinueOnError: true,
	}
}

type registration struct {
	name    string
	handler Handler
	phase   int
}
