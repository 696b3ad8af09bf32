// OpenTelemetry tracing around reconciliation, remote calls and requests.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with sync-layer helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // When true, include stored values in span attributes
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return NoopTracer()
	}
	return globalTracer
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
}

// NewTracer creates a new tracer with the given name.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		debug:  debug,
	}
}

// NewTracerFromProvider creates a tracer bound to a specific provider.
func NewTracerFromProvider(tp trace.TracerProvider, name string, debug bool) *Tracer {
	return &Tracer{tracer: tp.Tracer(name), debug: debug}
}

// SetDebug enables or disables debug mode.
func (t *Tracer) SetDebug(debug bool) {
	t.debug = debug
}

// Debug returns whether debug mode is enabled.
func (t *Tracer) Debug() bool {
	return t.debug
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// --- Reconcile Spans ---

// ReconcileSpanOptions describes a finished reconciliation.
type ReconcileSpanOptions struct {
	Resource string
	Shape    string
	Outcome  string // reconciled, local_authoritative, skipped, discarded
	Records  int
	Value    string // Only included if debug=true
}

// StartReconcileSpan starts a span for one key's remote reconciliation.
func (t *Tracer) StartReconcileSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "reconcile", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("state.key", key))
	return ctx, span
}

// EndReconcileSpan ends a reconcile span with attributes.
func (t *Tracer) EndReconcileSpan(span trace.Span, opts ReconcileSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("reconcile.outcome", opts.Outcome),
		attribute.Int("reconcile.records", opts.Records),
	}
	if opts.Resource != "" {
		attrs = append(attrs,
			attribute.String("remote.resource", opts.Resource),
			attribute.String("remote.shape", opts.Shape),
		)
	}
	if t.debug && opts.Value != "" {
		attrs = append(attrs, attribute.String("state.value", truncate(opts.Value, 4000)))
	}
	span.SetAttributes(attrs...)
	endSpan(span, err)
}

// --- Remote Spans ---

// StartRemoteSpan starts a client span for a remote source operation.
func (t *Tracer) StartRemoteSpan(ctx context.Context, op, resource string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "remote."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("remote.op", op),
		attribute.String("remote.resource", resource),
	)
	return ctx, span
}

// EndRemoteSpan ends a remote span, recording how many records came back.
func (t *Tracer) EndRemoteSpan(span trace.Span, records int, err error) {
	span.SetAttributes(attribute.Int("remote.records", records))
	endSpan(span, err)
}

// --- HTTP Spans ---

// StartRequestSpan starts a server span for an API request.
func (t *Tracer) StartRequestSpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
	)
	return ctx, span
}

// EndRequestSpan ends a request span.
func (t *Tracer) EndRequestSpan(span trace.Span, status int, elapsed time.Duration) {
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.Int64("http.server.duration_ms", elapsed.Milliseconds()),
	)
	if status >= 500 {
		span.SetStatus(codes.Error, "")
	}
	span.End()
}

// --- Context Propagation ---

// InjectContext injects trace context into a carrier for cross-process propagation.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractContext extracts trace context from a carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// MapCarrier is a simple map-based TextMapCarrier for context propagation.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string {
	return c[key]
}

func (c MapCarrier) Set(key, value string) {
	c[key] = value
}

func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// --- Helpers ---

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
