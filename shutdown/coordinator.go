package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/finserve/logging"
)

// Coordinator runs registered handlers phase by phase, once.
type Coordinator struct {
	config Config
	logger *logging.Logger

	mu       sync.Mutex
	handlers []registration
	once     sync.Once
	done     chan struct{}
	result   *Result
}

// NewCoordinator creates a coordinator.
func NewCoordinator(config Config) *Coordinator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{
		config: config,
		logger: logger.WithComponent("shutdown"),
		done:   make(chan struct{}),
	}
}

// Register adds a handler to phase.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, handler: h, phase: phase})
}

// Shutdown stops every registered handler. Only the first call runs the
// handlers; later calls wait for it and return the same error.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.result = c.run(ctx)
		close(c.done)
	})
	<-c.done
	return c.result.Err
}

// ShutdownWithTimeout calls Shutdown bounded by the configured timeout.
func (c *Coordinator) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// HandleSignals shuts down on SIGINT or SIGTERM. The returned function stops
// listening without shutting down.
func (c *Coordinator) HandleSignals() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			c.logger.Info("signal received", map[string]interface{}{"signal": sig.String()})
			_ = c.ShutdownWithTimeout()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(quit)
		})
	}
}

// Done is closed when shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Result returns the shutdown outcome, or nil while shutdown has not finished.
func (c *Coordinator) Result() *Result {
	select {
	case <-c.done:
		return c.result
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) *Result {
	start := time.Now()
	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	result := &Result{Results: make([]HandlerResult, 0, len(handlers))}
	for _, group := range groupByPhase(handlers) {
		if ctx.Err() != nil {
			result.Err = ErrTimeout
			break
		}
		results := c.runPhase(ctx, group)
		result.Results = append(result.Results, results...)

		failed := false
		for _, hr := range results {
			if hr.Err != nil {
				failed = true
			}
		}
		if failed {
			result.Err = ErrHandlerFailed
			if !c.config.ContinueOnError {
				break
			}
		}
	}
	result.TotalDuration = time.Since(start)
	return result
}

func (c *Coordinator) runPhase(ctx context.Context, group []registration) []HandlerResult {
	results := make([]HandlerResult, len(group))
	var wg sync.WaitGroup
	for i, r := range group {
		wg.Add(1)
		go func(i int, r registration) {
			defer wg.Done()
			start := time.Now()
			err := r.handler.OnShutdown(ctx)
			results[i] = HandlerResult{Name: r.name, Phase: r.phase, Duration: time.Since(start), Err: err}

			fields := map[string]interface{}{
				"handler":  r.name,
				"phase":    r.phase,
				"duration": results[i].Duration.String(),
			}
			if err != nil {
				fields["error"] = err.Error()
				c.logger.Warn("handler failed", fields)
				return
			}
			c.logger.Debug("handler stopped", fields)
		}(i, r)
	}
	wg.Wait()
	return results
}

// groupByPhase splits handlers, already sorted by phase, into runs of equal
// phase.
func groupByPhase(handlers []registration) [][]registration {
	var groups [][]registration
	for i := 0; i < len(handlers); {
		j := i
		for j < len(handlers) && handlers[j].phase == handlers[i].phase {
			j++
		}
		groups = append(groups, handlers[i:j])
		i = j
	}
	return groups
}
