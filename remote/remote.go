// Package remote defines the remote data source the sync layer reconciles
// against and ships its implementations.
//
// # Implementations
//
//   - StubSource: always succeeds with nothing; the deployed default
//   - MemorySource: in-process tables with created_at stamping
//   - RESTSource: PostgREST-style HTTP API
//   - BusSource: JSON request/reply over a bus.MessageBus, answered by a Responder
//
// Every source treats "success with no rows" as a normal answer. Callers must
// not read it as an instruction to erase local data.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// CreatedAt is the server-side bookkeeping column.
const CreatedAt = "created_at"

// IDField is the primary key column.
const IDField = "id"

// Operation names, shared by tracing, metrics and the bus protocol.
const (
	OpSelectAll = "select_all"
	OpSelectOne = "select_one"
	OpInsert    = "insert"
	OpUpdate    = "update"
	OpDelete    = "delete"
)

// Record is one remote row.
type Record map[string]any

// ID returns the record's id rendered as a string, or "" when absent.
func (r Record) ID() string {
	v, ok := r[IDField]
	if !ok || v == nil {
		return ""
	}
	return idString(v)
}

// Clone returns a copy that shares no maps or slices with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the JSON-shaped containers a record can hold.
func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []Record:
		out := make([]Record, len(t))
		for i, e := range t {
			out[i] = e.Clone()
		}
		return out
	case json.RawMessage:
		return append(json.RawMessage(nil), t...)
	default:
		return v
	}
}

// WithoutBookkeeping returns a copy without the created_at column.
func (r Record) WithoutBookkeeping() Record {
	out := r.Clone()
	delete(out, CreatedAt)
	return out
}

// idString normalizes ids that arrive as strings, JSON numbers or ints.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
		return fmt.Sprint(id)
	default:
		return fmt.Sprint(id)
	}
}

// Source is the remote data source contract.
type Source interface {
	// SelectAll returns every record of resource, newest first.
	SelectAll(ctx context.Context, resource string) ([]Record, error)

	// SelectOne returns the record with id, or nil and no error when there
	// is none.
	SelectOne(ctx context.Context, resource, id string) (Record, error)

	// Insert stores rec and returns the stored record.
	Insert(ctx context.Context, resource string, rec Record) (Record, error)

	// Update merges partial into the record with id.
	Update(ctx context.Context, resource, id string, partial Record) error

	// Delete removes the record with id.
	Delete(ctx context.Context, resource, id string) error
}

// SortNewestFirst orders records by created_at descending. Records without
// the column sort last, keeping their relative order.
func SortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		ci, _ := recs[i][CreatedAt].(string)
		cj, _ := recs[j][CreatedAt].(string)
		return ci > cj
	})
}
