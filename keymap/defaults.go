package keymap

// Base keys for the logical resources.
const (
	KeyTransactions = "finserve_transactions"
	KeyUsers        = "finserve_users"
	KeyBookings     = "finserve_bookings"
	KeyArticles     = "finserve_articles"
	KeyDocuments    = "finserve_documents"
	KeyAccounts     = "finserve_accounts"
	KeyClientData   = "finserve_client_data"
	KeyRetirement   = "finserve_retirement"
	KeySettings     = "finserve_settings"
	KeyHoldings     = "finserve_holdings"
)

// SingletonID is the fixed id of every singleton resource.
const SingletonID = "1"

func collection(prefix, resource string) Rule {
	return Rule{Prefix: prefix, Descriptor: Descriptor{Resource: resource, Shape: ShapeCollection}}
}

func object(prefix, resource, envelope string) Rule {
	return Rule{Prefix: prefix, Descriptor: Descriptor{
		Resource:    resource,
		Shape:       ShapeObject,
		SingletonID: SingletonID,
		Envelope:    envelope,
	}}
}

// DefaultRules is the fixed resource table. Holdings are local-only.
func DefaultRules() []Rule {
	return []Rule{
		collection(KeyTransactions, "transactions"),
		collection(KeyUsers, "users"),
		collection(KeyBookings, "bookings"),
		collection(KeyArticles, "articles"),
		collection(KeyDocuments, "documents"),
		collection(KeyAccounts, "accounts"),
		object(KeyClientData, "client_data", "data"),
		object(KeyRetirement, "retirement_settings", ""),
		object(KeySettings, "settings", ""),
	}
}

// DefaultMapper returns a mapper over DefaultRules.
func DefaultMapper() *Mapper {
	return New(DefaultRules()...)
}
