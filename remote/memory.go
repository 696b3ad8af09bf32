package remote

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	ferrors "github.com/vinayprograms/finserve/errors"
)

// StampLayout is the fixed-width created_at format; it sorts lexically.
const StampLayout = "2006-01-02T15:04:05.000000Z"

// MemorySource keeps tables in process memory. Inserted records are stamped
// with created_at and, when they carry no id, a generated UUID.
type MemorySource struct {
	mu     sync.RWMutex
	tables map[string][]Record
	now    func() time.Time
	last   time.Time
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		tables: make(map[string][]Record),
		now:    time.Now,
	}
}

// stamp returns a created_at strictly after the previous one so ordering is
// total even within one clock tick.
func (m *MemorySource) stamp() string {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t.Format(StampLayout)
}

// Seed inserts records as if through Insert.
func (m *MemorySource) Seed(resource string, recs ...Record) {
	for _, r := range recs {
		_, _ = m.Insert(context.Background(), resource, r)
	}
}

func (m *MemorySource) SelectAll(ctx context.Context, resource string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, ferrors.Wrap(err, "select "+resource)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.tables[resource]
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	SortNewestFirst(out)
	return out, nil
}

func (m *MemorySource) SelectOne(ctx context.Context, resource, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, ferrors.Wrap(err, "select "+resource)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.tables[resource] {
		if r.ID() == id {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MemorySource) Insert(ctx context.Context, resource string, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, ferrors.Wrap(err, "insert "+resource)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row := rec.Clone()
	if row == nil {
		row = Record{}
	}
	if row.ID() == "" {
		row[IDField] = uuid.NewString()
	}
	for _, existing := range m.tables[resource] {
		if existing.ID() == row.ID() {
			return nil, ferrors.New(ferrors.ErrCodeConflict, "duplicate id "+row.ID(),
				ferrors.WithResource(resource))
		}
	}
	row[CreatedAt] = m.stamp()
	m.tables[resource] = append(m.tables[resource], row)
	return row.Clone(), nil
}

func (m *MemorySource) Update(ctx context.Context, resource, id string, partial Record) error {
	if err := ctx.Err(); err != nil {
		return ferrors.Wrap(err, "update "+resource)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.tables[resource] {
		if r.ID() != id {
			continue
		}
		for k, v := range partial.Clone() {
			if k == IDField || k == CreatedAt {
				continue
			}
			r[k] = v
		}
		return nil
	}
	return ferrors.NotFound("no "+resource+" record "+id, ferrors.WithResource(resource))
}

func (m *MemorySource) Delete(ctx context.Context, resource, id string) error {
	if err := ctx.Err(); err != nil {
		return ferrors.Wrap(err, "delete "+resource)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[resource]
	for i, r := range rows {
		if r.ID() == id {
			m.tables[resource] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return ferrors.NotFound("no "+resource+" record "+id, ferrors.WithResource(resource))
}
