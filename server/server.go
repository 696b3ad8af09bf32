// Package server exposes state bindings, the session and the dashboard over
// HTTP.
//
// Routes:
//
//	GET    /healthz                           includes bus responders when monitored
//	GET    /metrics
//	GET    /api/keys?pattern=
//	GET    /api/state/:key?wait=true&default=<json>
//	PUT    /api/state/:key                    write-through, full overwrite
//	POST   /api/state/:key/raw                admin JSON editor
//	POST   /api/state/:key/push               admin, singleton write-back
//	POST   /api/collections/:key              admin, upsert one element
//	DELETE /api/collections/:key/:id          admin
//	POST   /api/clients/:id/funds             admin, adjust client funds
//	POST   /api/session                       login
//	GET    /api/session
//	DELETE /api/session
//	GET    /api/dashboard                     finance summary for the session user
//	GET    /api/watch?pattern=                websocket stream of cache changes
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/vinayprograms/finserve/defaults"
	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/heartbeat"
	"github.com/vinayprograms/finserve/identity"
	"github.com/vinayprograms/finserve/logging"
	"github.com/vinayprograms/finserve/metrics"
	"github.com/vinayprograms/finserve/syncstate"
	"github.com/vinayprograms/finserve/telemetry"
)

// Options are the API's collaborators. Pool and Identity are required.
type Options struct {
	Pool     *syncstate.Pool
	Identity *identity.Provider

	Metrics  metrics.Recorder
	Registry *prom.Registry // serves /metrics when set
	Tracer   *telemetry.Tracer
	Journal  telemetry.Journal
	Logger   *logging.Logger

	// ReconcileWait bounds ?wait=true reads and dashboard loads.
	// Default: 2s
	ReconcileWait time.Duration

	// Now is the clock used for debt payoff dates. Default: time.Now
	Now func() time.Time

	// Liveness, when set, adds the live bus responders to /healthz.
	Liveness Liveness
}

// Liveness reports instances seen recently, by role.
type Liveness interface {
	Alive(role string) []string
}

// API serves the routes.
type API struct {
	opts   Options
	logger *logging.Logger
	feed   *feed
}

// NewRouter returns a gin engine in release mode with panic recovery.
func NewRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// New registers the routes on r.
func New(opts Options, r *gin.Engine) *API {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRecorder{}
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.GetTracer()
	}
	if opts.Journal == nil {
		opts.Journal = telemetry.NewNoopJournal()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.ReconcileWait <= 0 {
		opts.ReconcileWait = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &API{opts: opts, logger: opts.Logger.WithComponent("server")}
	a.feed = newFeed(opts.Pool, a.logger)

	r.Use(a.observe)
	r.GET("/healthz", a.healthz)
	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Registry)))
	}

	api := r.Group("/api")
	api.GET("/keys", a.listKeys)
	api.GET("/state/:key", a.getState)
	api.PUT("/state/:key", a.putState)
	api.POST("/state/:key/raw", a.requireAdmin, a.editRaw)
	api.POST("/state/:key/push", a.requireAdmin, a.push)
	api.POST("/collections/:key", a.requireAdmin, a.upsert)
	api.DELETE("/collections/:key/:id", a.requireAdmin, a.remove)
	api.POST("/clients/:id/funds", a.requireAdmin, a.adjustFunds)
	api.POST("/session", a.login)
	api.GET("/session", a.session)
	api.DELETE("/session", a.logout)
	api.GET("/dashboard", a.dashboard)
	api.GET("/watch", a.watch)
	return a
}

// healthz is always 200. It reads "degraded" when the bus remote has no live
// responder, since remote reads would then time out.
func (a *API) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if a.opts.Liveness != nil {
		responders := a.opts.Liveness.Alive(heartbeat.RoleResponder)
		if responders == nil {
			responders = []string{}
		}
		body["responders"] = responders
		if len(responders) == 0 {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}

// observe traces, logs and counts every request.
func (a *API) observe(c *gin.Context) {
	start := time.Now()
	route := c.FullPath()
	ctx, span := a.opts.Tracer.StartRequestSpan(c.Request.Context(), c.Request.Method, route)
	c.Request = c.Request.WithContext(ctx)

	c.Next()

	elapsed := time.Since(start)
	status := c.Writer.Status()
	a.opts.Tracer.EndRequestSpan(span, status, elapsed)
	a.opts.Metrics.ObserveRequest(c.Request.Method, route, status, elapsed)
	a.logger.Request(c.Request.Method, c.Request.URL.Path, status, elapsed)
}

// fail aborts with the status mapped from err and a structured body.
func (a *API) fail(c *gin.Context, err error) {
	se, ok := ferrors.AsStructured(err).(*ferrors.Error)
	if !ok {
		se = ferrors.Wrap(err, "request failed")
	}
	status := ferrors.HTTPStatus(se)
	if status >= 500 {
		a.logger.Error("request failed", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
	}
	c.AbortWithStatusJSON(status, gin.H{"error": se})
}

// actor names the session user for the journal.
func (a *API) actor() string {
	if u, ok := a.opts.Identity.Current(); ok {
		return u.ID
	}
	return ""
}

func (a *API) record(name, key string, err error, data map[string]any) {
	ev := telemetry.Event{Name: name, Actor: a.actor(), Key: key, Data: data}
	if err != nil {
		ev.Error = err.Error()
	}
	a.opts.Journal.Record(ev)
}

func (a *API) requireAdmin(c *gin.Context) {
	u, ok := a.opts.Identity.Current()
	if !ok {
		a.fail(c, ferrors.New(ferrors.ErrCodeUnauthorized, "no session"))
		return
	}
	if !u.IsAdmin() {
		a.fail(c, ferrors.New(ferrors.ErrCodeForbidden, "admin role required"))
		return
	}
	c.Next()
}

// DefaultFor returns override when it is set, or the registered default for
// the key's family encoded as JSON.
func DefaultFor(key, override string) (json.RawMessage, error) {
	if override != "" {
		if !json.Valid([]byte(override)) {
			return nil, ferrors.InvalidInput("default", "not valid JSON", ferrors.WithKey(key))
		}
		return json.RawMessage(override), nil
	}
	def := defaults.For(key)
	if def == nil {
		return nil, nil
	}
	data, err := json.Marshal(def)
	if err != nil {
		return nil, ferrors.Wrap(err, "encode default", ferrors.WithKey(key))
	}
	return data, nil
}
