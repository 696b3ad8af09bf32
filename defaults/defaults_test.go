package defaults

import (
	"testing"

	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/model"
)

func TestClientData_SingleBalance(t *testing.T) {
	cd := ClientData("", "")
	if !cd.Balance.Equals(DefaultBalance) {
		t.Errorf("balance = %s, want %s", cd.Balance, DefaultBalance)
	}
	if cd.Balance.String() != "100" {
		t.Errorf("default balance = %s", cd.Balance)
	}
}

func TestClientData_Overrides(t *testing.T) {
	cd := ClientData("Sam", "sam@example.com")
	if cd.Name != "Sam" || cd.Email != "sam@example.com" {
		t.Errorf("overrides not applied: %s %s", cd.Name, cd.Email)
	}
	base := ClientData("", "")
	if base.Name != "Alex Morgan" {
		t.Errorf("demo name = %s", base.Name)
	}
}

func TestClientData_FreshCopies(t *testing.T) {
	a := ClientData("", "")
	a.Budget[0].Name = "changed"
	b := ClientData("", "")
	if b.Budget[0].Name != "Housing" {
		t.Error("defaults share backing arrays")
	}
}

func TestSeedCounts(t *testing.T) {
	if n := len(Users()); n != 5 {
		t.Errorf("users = %d", n)
	}
	if n := len(Transactions()); n != 5 {
		t.Errorf("transactions = %d", n)
	}
	if n := len(Documents()); n != 4 {
		t.Errorf("documents = %d", n)
	}
	if n := len(Accounts()); n != 2 {
		t.Errorf("accounts = %d", n)
	}
	if n := len(Articles()); n != 2 {
		t.Errorf("articles = %d", n)
	}
	if n := len(Holdings()); n != 6 {
		t.Errorf("holdings = %d", n)
	}
	if Bookings() == nil {
		t.Error("bookings default must be an empty list, not nil")
	}
}

func TestSettingsAndRetirement(t *testing.T) {
	s := Settings()
	if s.PlatformName != "Empower" || s.MaintenanceMode || !s.AllowSignups || s.ThemeColor != "blue" {
		t.Errorf("settings = %+v", s)
	}
	r := Retirement()
	if r.Rate401k.String() != "12" || r.RateRoth.String() != "500" || r.CurrentAge != 32 || r.RetireAge != 65 {
		t.Errorf("retirement = %+v", r)
	}
}

func TestFor(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{keymap.Key(keymap.KeyClientData, DemoUserID), "client"},
		{keymap.Key(keymap.KeyTransactions, DemoUserID), "transactions"},
		{keymap.KeyUsers, "users"},
		{keymap.Key(keymap.KeyHoldings, "u1"), "holdings"},
		{keymap.KeySettings, "settings"},
		{"unknown_key", "nil"},
	}
	for _, tt := range tests {
		got := For(tt.key)
		var kind string
		switch got.(type) {
		case model.ClientData:
			kind = "client"
		case []model.Transaction:
			kind = "transactions"
		case []model.User:
			kind = "users"
		case []model.Holding:
			kind = "holdings"
		case model.Settings:
			kind = "settings"
		case nil:
			kind = "nil"
		default:
			kind = "other"
		}
		if kind != tt.want {
			t.Errorf("For(%q) = %s, want %s", tt.key, kind, tt.want)
		}
	}
}
