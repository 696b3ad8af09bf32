// Package keymap translates state keys into remote resource descriptors.
//
// The table is fixed at construction and lookups are pure: the same key always
// yields the same descriptor, or reports that the key has no remote mapping
// (a local-only key).
package keymap

import (
	"sort"
	"strings"
)

// Shape is the record shape of a remote resource.
type Shape string

const (
	// ShapeObject is a single record addressed by a fixed id.
	ShapeObject Shape = "object"
	// ShapeCollection is an ordered list of records, newest first.
	ShapeCollection Shape = "collection"
)

// OrderBy is the bookkeeping column collections are sorted on, descending.
const OrderBy = "created_at"

// PrivateMarker flags session-scoped keys that never reconcile remotely.
const PrivateMarker = "_user_"

// Descriptor identifies where a key lives remotely.
type Descriptor struct {
	// Resource is the remote table or collection name.
	Resource string `json:"resource"`

	// Shape selects single-record or list retrieval.
	Shape Shape `json:"shape"`

	// SingletonID is the fixed record id for ShapeObject resources.
	SingletonID string `json:"singleton_id,omitempty"`

	// Envelope names the field wrapping the payload of a singleton record.
	// Empty means the record itself is the payload.
	Envelope string `json:"envelope,omitempty"`
}

// IsObject reports whether the descriptor addresses a singleton.
func (d Descriptor) IsObject() bool { return d.Shape == ShapeObject }

// Rule maps every key equal to Prefix, or starting with Prefix followed by
// "_", to Descriptor.
type Rule struct {
	Prefix     string
	Descriptor Descriptor
}

// Mapper resolves keys against an immutable rule table.
type Mapper struct {
	rules []Rule
}

// New builds a mapper. Longer prefixes are tried first, so
// "finserve_client_data_<id>" never falls through to a shorter rule.
func New(rules ...Rule) *Mapper {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Mapper{rules: sorted}
}

// Lookup returns the descriptor for key, or false when the key is unmapped.
func (m *Mapper) Lookup(key string) (Descriptor, bool) {
	if m == nil || key == "" {
		return Descriptor{}, false
	}
	for _, r := range m.rules {
		if key == r.Prefix || strings.HasPrefix(key, r.Prefix+"_") {
			return r.Descriptor, true
		}
	}
	return Descriptor{}, false
}

// Rules returns a copy of the table, longest prefix first.
func (m *Mapper) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// IsPrivate reports whether key is session-scoped and must skip remote reads.
func IsPrivate(key string) bool {
	return strings.Contains(key, PrivateMarker)
}

// Key namespaces base by userID. An empty userID returns base unchanged.
func Key(base, userID string) string {
	if userID == "" {
		return base
	}
	return base + "_" + userID
}
