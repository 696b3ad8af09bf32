// Package model defines the records persisted under state keys.
//
// JSON field names follow the stored documents exactly so cached values and
// remote rows decode without translation.
package model

// ClientData is the per-user financial profile (finserve_client_data_<id>).
type ClientData struct {
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Balance       Amount         `json:"balance"`
	Budget        []BudgetItem   `json:"budget"`
	Cashflow      []CashflowItem `json:"cashflow"`
	Subscriptions []Subscription `json:"subscriptions"`
	Debts         []Debt         `json:"debts"`
	Emergency     EmergencyFund  `json:"emergency"`
}

// BudgetItem is one spending category.
type BudgetItem struct {
	Name  string `json:"name"`
	Spent Amount `json:"spent"`
	Limit Amount `json:"limit"`
	Color string `json:"color,omitempty"`
}

// CashflowItem is one month of income and spending.
type CashflowItem struct {
	Month string `json:"month"`
	In    Amount `json:"in"`
	Out   Amount `json:"out"`
}

// Billing cycles.
const (
	CycleMonthly = "Monthly"
	CycleYearly  = "Yearly"
)

// Subscription is a recurring charge.
type Subscription struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Cost  Amount `json:"cost"`
	Cycle string `json:"cycle"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// Debt is an outstanding balance with its minimum payment.
type Debt struct {
	Name    string `json:"name"`
	Balance Amount `json:"balance"`
	Rate    Amount `json:"rate"`
	Min     Amount `json:"min"`
}

// EmergencyFund tracks savings toward a safety-net goal.
type EmergencyFund struct {
	Current Amount `json:"current"`
	Goal    Amount `json:"goal"`
}

// RetirementSettings drives the retirement projection (finserve_retirement_<id>).
type RetirementSettings struct {
	Rate401k   Amount `json:"rate401k"`
	RateRoth   Amount `json:"rateRoth"`
	CurrentAge int    `json:"currentAge"`
	RetireAge  int    `json:"retireAge"`
}

// Asset classes for holdings.
const (
	AssetStock  = "Stock"
	AssetBond   = "Bond"
	AssetCrypto = "Crypto"
)

// Holding is a position in the investment portfolio.
type Holding struct {
	Symbol   string `json:"s"`
	Name     string `json:"n"`
	Price    Amount `json:"p"`
	Quantity Amount `json:"q"`
	Type     string `json:"type"`
}

// Value is price times quantity.
func (h Holding) Value() Amount {
	return h.Price.Mul(h.Quantity)
}

// Settings holds platform-wide configuration (finserve_settings).
type Settings struct {
	PlatformName    string `json:"platformName"`
	MaintenanceMode bool   `json:"maintenanceMode"`
	AllowSignups    bool   `json:"allowSignups"`
	ThemeColor      string `json:"themeColor"`
}
