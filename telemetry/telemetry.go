// Package telemetry provides tracing and the admin audit journal.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Journal records administrative changes to stored state.
type Journal interface {
	// Record appends an event.
	Record(ev Event)
	// Flush sends any buffered data.
	Flush() error
	// Close closes the journal.
	Close() error
}

// Event names.
const (
	EventEditRaw = "state.edit_raw"
	EventWrite   = "state.write"
	EventPush    = "state.push"
	EventUpsert  = "collection.upsert"
	EventRemove  = "collection.remove"
	EventLogin   = "session.login"
	EventLogout  = "session.logout"
)

// Event is one journal entry.
type Event struct {
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor,omitempty"`
	Key       string         `json:"key,omitempty"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewJournal creates a journal based on protocol.
func NewJournal(protocol, endpoint string) (Journal, error) {
	switch protocol {
	case "http":
		return NewHTTPJournal(endpoint), nil
	case "file":
		return NewFileJournal(endpoint)
	case "noop", "":
		return NewNoopJournal(), nil
	default:
		return nil, fmt.Errorf("unknown journal protocol: %s", protocol)
	}
}

func stamp(ev Event) Event {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return ev
}

// --- HTTP Journal ---

// HTTPJournal posts batches of events to an HTTP endpoint.
type HTTPJournal struct {
	endpoint string
	client   *http.Client
	buffer   []Event
	mu       sync.Mutex
}

// NewHTTPJournal creates a new HTTP journal.
func NewHTTPJournal(endpoint string) *HTTPJournal {
	return &HTTPJournal{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		buffer: make([]Event, 0, 100),
	}
}

func (j *HTTPJournal) Record(ev Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buffer = append(j.buffer, stamp(ev))
	if len(j.buffer) >= 100 {
		_ = j.flush()
	}
}

func (j *HTTPJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flush()
}

func (j *HTTPJournal) flush() error {
	if len(j.buffer) == 0 {
		return nil
	}

	data, err := json.Marshal(j.buffer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("journal endpoint returned %d", resp.StatusCode)
	}

	j.buffer = j.buffer[:0]
	return nil
}

func (j *HTTPJournal) Close() error {
	return j.Flush()
}

// --- File Journal ---

// FileJournal appends JSON lines to a file.
type FileJournal struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileJournal opens path for appending.
func NewFileJournal(path string) (*FileJournal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	return &FileJournal{file: file}, nil
}

func (j *FileJournal) Record(ev Event) {
	data, err := json.Marshal(stamp(ev))
	if err != nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.file.Write(append(data, '\n'))
}

func (j *FileJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Sync()
}

func (j *FileJournal) Close() error {
	j.Flush()
	return j.file.Close()
}

// --- Noop Journal ---

// NoopJournal discards all events.
type NoopJournal struct{}

// NewNoopJournal creates a new noop journal.
func NewNoopJournal() *NoopJournal {
	return &NoopJournal{}
}

func (j *NoopJournal) Record(Event) {}
func (j *NoopJournal) Flush() error { return nil }
func (j *NoopJournal) Close() error { return nil }
