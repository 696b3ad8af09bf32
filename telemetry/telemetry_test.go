package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNoopJournal(t *testing.T) {
	j := NewNoopJournal()

	// Should not panic
	j.Record(Event{Name: EventWrite, Key: "finserve_settings"})

	if err := j.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	j, err := NewFileJournal(path)
	if err != nil {
		t.Fatalf("NewFileJournal() error = %v", err)
	}

	j.Record(Event{Name: EventEditRaw, Actor: "admin", Key: "finserve_settings"})
	j.Record(Event{Name: EventLogout, Actor: "admin"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Key != "finserve_settings" || events[0].Timestamp.IsZero() {
		t.Errorf("unexpected first event %+v", events[0])
	}
}

func TestHTTPJournal(t *testing.T) {
	var got []Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	j := NewHTTPJournal(srv.URL)
	j.Record(Event{Name: EventPush, Key: "finserve_client_data_u1"})
	if err := j.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != EventPush {
		t.Errorf("server received %+v", got)
	}
}

func TestHTTPJournal_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	j := NewHTTPJournal(srv.URL)
	j.Record(Event{Name: EventWrite})
	if err := j.Flush(); err == nil {
		t.Error("expected error from failing endpoint")
	}
}

func TestNewJournal(t *testing.T) {
	tests := []struct {
		protocol string
		wantErr  bool
	}{
		{"noop", false},
		{"", false},
		{"http", false},
		{"unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			j, err := NewJournal(tt.protocol, "http://localhost:0")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewJournal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if j != nil {
				j.Close()
			}
		})
	}
}

func TestTracer_ReconcileSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := NewTracerFromProvider(tp, "test", false)

	_, span := tr.StartReconcileSpan(context.Background(), "finserve_settings")
	tr.EndReconcileSpan(span, ReconcileSpanOptions{
		Resource: "settings",
		Shape:    "object",
		Outcome:  "reconciled",
		Records:  1,
		Value:    `{"secret":true}`,
	}, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "state.value" {
			t.Error("value recorded without debug mode")
		}
	}
}

func TestTracer_RemoteSpanError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := NewTracerFromProvider(tp, "test", true)

	_, span := tr.StartRemoteSpan(context.Background(), "select_all", "users")
	tr.EndRemoteSpan(span, 0, errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != "remote.select_all" {
		t.Fatalf("unexpected spans %v", spans)
	}
	if spans[0].Status().Description != "boom" {
		t.Errorf("status = %+v", spans[0].Status())
	}
}

func TestMapCarrier_RoundTrip(t *testing.T) {
	c := MapCarrier{}
	c.Set("traceparent", "00-abc-def-01")
	if c.Get("traceparent") != "00-abc-def-01" || len(c.Keys()) != 1 {
		t.Errorf("carrier = %v", c)
	}
}

func TestGetTracer_DefaultNoop(t *testing.T) {
	SetGlobalTracer(nil)
	tr := GetTracer()
	_, span := tr.StartSpan(context.Background(), "x")
	span.End()
}

func TestInitProvider_NoEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if _, err := InitProvider(context.Background(), ProviderConfig{}); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}
