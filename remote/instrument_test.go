package remote

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/finserve/logging"
)

type recordingObserver struct {
	calls []string
	errs  int
}

func (o *recordingObserver) ObserveRemote(op, resource string, _ time.Duration, err error) {
	o.calls = append(o.calls, op+":"+resource)
	if err != nil {
		o.errs++
	}
}

func TestInstrumented_ObservesEveryCall(t *testing.T) {
	obs := &recordingObserver{}
	src := Instrument(NewMemorySource(), nil, nil, obs)
	ctx := context.Background()

	_, _ = src.SelectAll(ctx, "users")
	_, _ = src.SelectOne(ctx, "settings", "1")
	_, _ = src.Insert(ctx, "users", Record{"id": 1})
	_ = src.Update(ctx, "users", "1", Record{"name": "x"})
	_ = src.Delete(ctx, "users", "1")

	want := []string{"select_all:users", "select_one:settings", "insert:users", "update:users", "delete:users"}
	if strings.Join(obs.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v", obs.calls)
	}
	if obs.errs != 0 {
		t.Errorf("unexpected errors: %d", obs.errs)
	}
}

func TestInstrumented_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(&buf)

	src := Instrument(failingSource{}, logger, nil, nil)
	_, err := src.SelectAll(context.Background(), "users")
	if err == nil || err.Error() != "db down" {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), "users") || !strings.Contains(buf.String(), "WARN") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestInstrumented_Unwrap(t *testing.T) {
	inner := NewStubSource()
	if Instrument(inner, nil, nil, nil).Unwrap() != Source(inner) {
		t.Error("Unwrap returned a different source")
	}
}
