package state

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%5)
			_ = s.Put(key, []byte(fmt.Sprint(n)))
			_, _ = s.Get(key)
			_, _ = s.Keys("key*")
		}(i)
	}
	wg.Wait()

	keys, err := s.Keys("key*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 5 {
		t.Errorf("expected 5 keys, got %d", len(keys))
	}
}

func TestMemoryStore_WatchRevisionsIncrease(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ch, _ := s.Watch("")
	_ = s.Put("a", []byte("1"))
	_ = s.Put("b", []byte("2"))

	first := <-ch
	second := <-ch
	if second.Revision <= first.Revision {
		t.Errorf("expected increasing revisions, got %d then %d", first.Revision, second.Revision)
	}
}

func TestMemoryStore_DeleteMissingNoEvent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ch, _ := s.Watch("*")
	_ = s.Delete("missing")
	_ = s.Put("present", []byte("x"))

	kv := <-ch
	if kv.Key != "present" {
		t.Errorf("expected only the put event, got %+v", kv)
	}
}

func TestMemoryStore_SlowWatcherDoesNotBlock(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	_, _ = s.Watch("*")
	for i := 0; i < 200; i++ {
		if err := s.Put("k", []byte("v")); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
}
