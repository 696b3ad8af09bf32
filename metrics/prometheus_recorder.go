package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finserve"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reconciles        *prom.CounterVec
	reconcileDuration *prom.HistogramVec
	cacheErrors       *prom.CounterVec
	remoteCalls       *prom.CounterVec
	remoteDuration    *prom.HistogramVec
	requests          *prom.CounterVec
	requestDuration   *prom.HistogramVec
	openBindings      prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// reg gets a fresh registry, which also carries the Go runtime collectors.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = NewRegistry()
	}
	pr := &PrometheusRecorder{
		reconciles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Finished reconciliations by outcome",
		}, []string{"resource", "outcome"}),
		reconcileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time from binding open to reconciliation result",
			Buckets:   prom.DefBuckets,
		}, []string{"resource"}),
		cacheErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Durable cache reads or writes that failed",
		}, []string{"op"}),
		remoteCalls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Calls against the remote source",
		}, []string{"op", "resource", "result"}),
		remoteDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Remote source call latency",
			Buckets:   prom.DefBuckets,
		}, []string{"op", "resource"}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		openBindings: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "open_bindings",
			Help:      "Bindings opened and not yet closed",
		}),
	}
	reg.MustRegister(pr.reconciles, pr.reconcileDuration, pr.cacheErrors,
		pr.remoteCalls, pr.remoteDuration, pr.requests, pr.requestDuration, pr.openBindings)
	return pr
}

// NewRegistry returns a registry with the process and Go collectors attached.
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveReconcile(resource, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.reconciles.WithLabelValues(resource, outcome).Inc()
	p.reconcileDuration.WithLabelValues(resource).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCacheError(op string) {
	if p == nil {
		return
	}
	p.cacheErrors.WithLabelValues(op).Inc()
}

// ObserveRemote also satisfies remote.Observer.
func (p *PrometheusRecorder) ObserveRemote(op, resource string, d time.Duration, err error) {
	if p == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	p.remoteCalls.WithLabelValues(op, resource, result).Inc()
	p.remoteDuration.WithLabelValues(op, resource).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddOpenBindings(delta int) {
	if p == nil {
		return
	}
	p.openBindings.Add(float64(delta))
}
