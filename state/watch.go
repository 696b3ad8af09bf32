package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// watchHub fans change notifications out to pattern watchers. Slow watchers
// drop notifications rather than block writers.
type watchHub struct {
	mu       sync.Mutex
	watchers []*watcher
	revision atomic.Uint64
}

type watcher struct {
	pattern string
	ch      chan *KeyValue
}

func (h *watchHub) add(pattern string) <-chan *KeyValue {
	w := &watcher{pattern: pattern, ch: make(chan *KeyValue, 64)}
	h.mu.Lock()
	h.watchers = append(h.watchers, w)
	h.mu.Unlock()
	return w.ch
}

func (h *watchHub) notify(key string, value []byte, op Operation) uint64 {
	rev := h.revision.Add(1)
	kv := &KeyValue{
		Key:       key,
		Value:     value,
		Revision:  rev,
		Operation: op,
		Modified:  time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers {
		if !MatchPattern(w.pattern, key) {
			continue
		}
		select {
		case w.ch <- kv:
		default:
		}
	}
	return rev
}

func (h *watchHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers {
		close(w.ch)
	}
	h.watchers = nil
}
