// Package state provides the durable local cache behind every keyed binding.
//
// A StateStore is a byte-oriented key/value store that survives process
// restarts (SQLite file, NATS JetStream KV) or, for tests, lives in memory.
// Values are opaque; the syncstate package serializes them as JSON.
//
// # Backends
//
//   - SQLiteStore: on-device file, the default durable cache
//   - NATSStore: JetStream KV bucket, shared between processes
//   - MemoryStore: in-process map for tests and demos
//
// # Usage
//
//	store, _ := state.NewSQLiteStore("finserve.db")
//	defer store.Close()
//
//	store.Put("finserve_settings", []byte(`{"platformName":"Empower"}`))
//	raw, err := store.Get("finserve_settings")
//	if errors.Is(err, state.ErrNotFound) {
//	    // use the default
//	}
//
//	// Observe writes from other bindings sharing the namespace
//	ch, _ := store.Watch("finserve_client_data_*")
//	for kv := range ch {
//	    fmt.Printf("%s %s\n", kv.Operation, kv.Key)
//	}
package state
