// Package syncstate binds named pieces of state to three tiers: an in-memory
// value, a durable cache and a remote source.
//
// A Binding is opened for a key with a default value. It is seeded from the
// durable cache (or the default), and every write goes through to the cache
// before the call returns. One reconciliation against the remote source runs
// in the background per binding:
//
//	b := syncstate.Open(ctx, deps, keymap.Key(keymap.KeyClientData, userID), defaults.ClientData(name, email))
//	v := b.Get()          // seeded value, never blocks
//	<-b.Done()            // optional: wait for the reconciliation
//	b.Set(updated)        // write-through, full overwrite
//	b.Close()             // unmount: later writes and late remote results are dropped
//
// # Reconciliation
//
// Private keys (containing keymap.PrivateMarker) and keys without a remote
// mapping never query the remote source. Otherwise:
//
//	object      SelectOne(resource, singleton id); the envelope field is
//	            unwrapped when the descriptor names one, else created_at is
//	            stripped
//	collection  SelectAll(resource), newest first, created_at stripped per row
//
// A non-empty result replaces the value. Errors, empty results and results
// that do not decode into the binding's type leave it untouched.
//
// # Phases
//
//	Seeded -> Reconciling -> Reconciled
//	Seeded -> Reconciling -> LocalAuthoritative
//
// Writes are legal in every phase and never move the phase.
//
// # Errors
//
// Durable cache and remote failures are logged and counted, never returned
// from Open, Get or Set. The admin editor path (EditRaw) is the exception:
// malformed JSON is returned as an INVALID_INPUT error and the value is left
// as it was.
package syncstate
