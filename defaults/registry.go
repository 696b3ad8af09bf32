package defaults

import (
	"strings"

	"github.com/vinayprograms/finserve/keymap"
)

// For returns the default value for a state key by its key family, or nil
// when the family is unknown. Longer families are matched first.
func For(key string) any {
	switch {
	case hasFamily(key, keymap.KeyClientData):
		return ClientData("", "")
	case hasFamily(key, keymap.KeyTransactions):
		return Transactions()
	case hasFamily(key, keymap.KeyUsers):
		return Users()
	case hasFamily(key, keymap.KeyBookings):
		return Bookings()
	case hasFamily(key, keymap.KeyArticles):
		return Articles()
	case hasFamily(key, keymap.KeyDocuments):
		return Documents()
	case hasFamily(key, keymap.KeyAccounts):
		return Accounts()
	case hasFamily(key, keymap.KeyRetirement):
		return Retirement()
	case hasFamily(key, keymap.KeySettings):
		return Settings()
	case hasFamily(key, keymap.KeyHoldings):
		return Holdings()
	}
	return nil
}

func hasFamily(key, family string) bool {
	return key == family || strings.HasPrefix(key, family+"_")
}
