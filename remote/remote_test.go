package remote

import (
	"context"
	"testing"
	"time"

	ferrors "github.com/vinayprograms/finserve/errors"
)

func TestRecord_ID(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{"id": "TXN-1"}, "TXN-1"},
		{Record{"id": float64(7)}, "7"},
		{Record{"id": 1}, "1"},
		{Record{"id": 1.5}, "1.5"},
		{Record{}, ""},
		{Record{"id": nil}, ""},
	}
	for _, tt := range tests {
		if got := tt.rec.ID(); got != tt.want {
			t.Errorf("ID(%v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func TestRecord_WithoutBookkeeping(t *testing.T) {
	r := Record{"id": 1, CreatedAt: "2024-01-01T00:00:00.000000Z", "name": "x"}
	out := r.WithoutBookkeeping()
	if _, ok := out[CreatedAt]; ok {
		t.Error("created_at not stripped")
	}
	if _, ok := r[CreatedAt]; !ok {
		t.Error("original record mutated")
	}
}

func TestSortNewestFirst(t *testing.T) {
	recs := []Record{
		{"id": "a", CreatedAt: "2024-01-01T00:00:00.000000Z"},
		{"id": "b"},
		{"id": "c", CreatedAt: "2024-03-01T00:00:00.000000Z"},
	}
	SortNewestFirst(recs)
	if recs[0].ID() != "c" || recs[1].ID() != "a" || recs[2].ID() != "b" {
		t.Errorf("order = %s %s %s", recs[0].ID(), recs[1].ID(), recs[2].ID())
	}
}

func TestStubSource_AlwaysEmpty(t *testing.T) {
	var s Source = NewStubSource()
	ctx := context.Background()

	if recs, err := s.SelectAll(ctx, "users"); recs != nil || err != nil {
		t.Errorf("SelectAll = %v, %v", recs, err)
	}
	if rec, err := s.SelectOne(ctx, "settings", "1"); rec != nil || err != nil {
		t.Errorf("SelectOne = %v, %v", rec, err)
	}
	if rec, err := s.Insert(ctx, "users", Record{"name": "x"}); rec != nil || err != nil {
		t.Errorf("Insert = %v, %v", rec, err)
	}
	if err := s.Update(ctx, "settings", "1", Record{}); err != nil {
		t.Errorf("Update = %v", err)
	}
	if err := s.Delete(ctx, "users", "1"); err != nil {
		t.Errorf("Delete = %v", err)
	}
}

func TestMemorySource_NewestFirst(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()

	m.Seed("transactions", Record{"id": "TXN-1"}, Record{"id": "TXN-2"}, Record{"id": "TXN-3"})

	recs, err := m.SelectAll(ctx, "transactions")
	if err != nil {
		t.Fatalf("SelectAll: %v", err)
	}
	if len(recs) != 3 || recs[0].ID() != "TXN-3" || recs[2].ID() != "TXN-1" {
		t.Errorf("unexpected order %v", recs)
	}
}

func TestMemorySource_StampsMonotonic(t *testing.T) {
	m := NewMemorySource()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	a, _ := m.Insert(context.Background(), "users", Record{"id": 1})
	b, _ := m.Insert(context.Background(), "users", Record{"id": 2})
	if a[CreatedAt].(string) >= b[CreatedAt].(string) {
		t.Errorf("stamps not increasing: %v %v", a[CreatedAt], b[CreatedAt])
	}
}

func TestMemorySource_GeneratesIDs(t *testing.T) {
	m := NewMemorySource()
	rec, err := m.Insert(context.Background(), "bookings", Record{"user": "Alex"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(rec.ID()) != 36 {
		t.Errorf("expected uuid id, got %q", rec.ID())
	}
}

func TestMemorySource_DuplicateID(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	_, _ = m.Insert(ctx, "users", Record{"id": 1})
	_, err := m.Insert(ctx, "users", Record{"id": float64(1)})
	if !ferrors.Is(err, ferrors.ErrCodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestMemorySource_SelectOne(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	m.Seed("client_data", Record{"id": 1, "data": map[string]any{"balance": 500}})

	rec, err := m.SelectOne(ctx, "client_data", "1")
	if err != nil || rec == nil {
		t.Fatalf("SelectOne = %v, %v", rec, err)
	}
	missing, err := m.SelectOne(ctx, "client_data", "2")
	if missing != nil || err != nil {
		t.Errorf("missing SelectOne = %v, %v", missing, err)
	}
}

func TestMemorySource_UpdateDelete(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	m.Seed("settings", Record{"id": 1, "platformName": "Empower"})

	if err := m.Update(ctx, "settings", "1", Record{"platformName": "FinServe", "id": 9}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	rec, _ := m.SelectOne(ctx, "settings", "1")
	if rec["platformName"] != "FinServe" {
		t.Errorf("update not applied: %v", rec)
	}

	if err := m.Update(ctx, "settings", "2", Record{}); !ferrors.Is(err, ferrors.ErrCodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := m.Delete(ctx, "settings", "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "settings", "1"); !ferrors.Is(err, ferrors.ErrCodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemorySource_CanceledContext(t *testing.T) {
	m := NewMemorySource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.SelectAll(ctx, "users"); !ferrors.Is(err, ferrors.ErrCodeCanceled) {
		t.Errorf("expected canceled, got %v", err)
	}
}

func TestMemorySource_ReturnsCopies(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	m.Seed("users", Record{"id": 1, "name": "a"})

	recs, _ := m.SelectAll(ctx, "users")
	recs[0]["name"] = "mutated"

	again, _ := m.SelectOne(ctx, "users", "1")
	if again["name"] != "a" {
		t.Error("caller mutation leaked into table")
	}
}

func TestMemorySource_UpdateCopiesNestedValues(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	m.Seed("client_data", Record{"id": 1})

	budget := map[string]any{"food": float64(200)}
	tags := []any{"vip"}
	if err := m.Update(ctx, "client_data", "1", Record{"budget": budget, "tags": tags}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	budget["food"] = float64(0)
	tags[0] = "mutated"

	got, _ := m.SelectOne(ctx, "client_data", "1")
	if got["budget"].(map[string]any)["food"] != float64(200) {
		t.Errorf("budget shared with caller: %v", got["budget"])
	}
	if got["tags"].([]any)[0] != "vip" {
		t.Errorf("tags shared with caller: %v", got["tags"])
	}

	// Values handed out are copies too.
	got["budget"].(map[string]any)["food"] = float64(1)
	again, _ := m.SelectOne(ctx, "client_data", "1")
	if again["budget"].(map[string]any)["food"] != float64(200) {
		t.Error("nested read value shared with table")
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := Record{"nested": Record{"a": []any{map[string]any{"b": 1}}}}
	c := r.Clone()
	c["nested"].(Record)["a"].([]any)[0].(map[string]any)["b"] = 2
	if r["nested"].(Record)["a"].([]any)[0].(map[string]any)["b"] != 1 {
		t.Error("Clone shared nested containers")
	}
}
