package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/state"
	"github.com/vinayprograms/finserve/syncstate"
)

// ChangeEvent is one message on the /api/watch stream.
type ChangeEvent struct {
	Key      string          `json:"key"`
	Op       string          `json:"op"`
	Revision uint64          `json:"revision"`
	Value    json.RawMessage `json:"value,omitempty"`
}

const (
	writeWait      = 5 * time.Second
	clientBacklog  = 32
	feedPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// feed is the process's single watcher on the durable cache. Each change
// reloads the pooled binding for the key, so bindings see writes made by
// other processes, and is then fanned out to websocket clients.
type feed struct {
	pool   *syncstate.Pool
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	started bool
	wg      sync.WaitGroup
}

type client struct {
	pattern string
	ch      chan ChangeEvent
}

func newFeed(pool *syncstate.Pool, logger *logging.Logger) *feed {
	return &feed{pool: pool, logger: logger, clients: make(map[*client]struct{})}
}

// Start watches cache until ctx ends or the cache closes the stream.
// Calling it twice is a no-op.
func (f *feed) Start(ctx context.Context, cache state.StateStore) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.mu.Unlock()

	changes, err := cache.Watch("*")
	if err != nil {
		return err
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.closeClients()
		for {
			select {
			case <-ctx.Done():
				return
			case kv, ok := <-changes:
				if !ok {
					return
				}
				f.dispatch(kv)
			}
		}
	}()
	return nil
}

func (f *feed) dispatch(kv *state.KeyValue) {
	if f.pool != nil {
		f.pool.Reload(kv.Key)
	}
	ev := ChangeEvent{Key: kv.Key, Op: kv.Operation.String(), Revision: kv.Revision}
	if kv.Operation == state.OpPut && json.Valid(kv.Value) {
		ev.Value = json.RawMessage(kv.Value)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		if !state.MatchPattern(c.pattern, kv.Key) {
			continue
		}
		select {
		case c.ch <- ev:
		default:
			f.logger.Debug("watch client lagging, event dropped", map[string]interface{}{"key": kv.Key})
		}
	}
}

func (f *feed) subscribe(pattern string) *client {
	c := &client{pattern: pattern, ch: make(chan ChangeEvent, clientBacklog)}
	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()
	return c
}

func (f *feed) unsubscribe(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.ch)
	}
}

func (f *feed) closeClients() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		close(c.ch)
	}
	f.clients = make(map[*client]struct{})
}

// Wait blocks until the watch loop exits.
func (f *feed) Wait() { f.wg.Wait() }

// Start begins streaming cache changes to watchers and bindings.
func (a *API) Start(ctx context.Context) error {
	return a.feed.Start(ctx, a.opts.Pool.Deps().Cache)
}

// Close disconnects every watch client. Start's context should be canceled
// first.
func (a *API) Close() error {
	a.feed.closeClients()
	return nil
}

func (a *API) watch(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		a.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	sub := a.feed.subscribe(pattern)
	defer a.feed.unsubscribe(sub)

	// Reader detects the peer going away; clients send nothing meaningful.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-sub.ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
