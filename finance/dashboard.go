package finance

import (
	"time"

	"github.com/vinayprograms/finserve/model"
)

// Inputs gathers the stored values a dashboard is built from.
type Inputs struct {
	Client     model.ClientData
	Accounts   []model.Account
	Holdings   []model.Holding
	Retirement model.RetirementSettings
}

// Dashboard is every derived figure shown to a client.
type Dashboard struct {
	Balance              model.Amount     `json:"balance"`
	Budget               BudgetSummary    `json:"budget"`
	MonthlySubscriptions model.Amount     `json:"monthlySubscriptions"`
	Emergency            EmergencySummary `json:"emergency"`
	Debt                 DebtSummary      `json:"debt"`
	Portfolio            Allocation       `json:"portfolio"`
	RetirementProjection model.Amount     `json:"retirementProjection"`
}

// Summarize computes the dashboard. Net worth is the retirement principal.
func Summarize(in Inputs, now time.Time) Dashboard {
	alloc := Portfolio(in.Holdings, in.Client.Balance, in.Accounts)
	return Dashboard{
		Balance:              in.Client.Balance,
		Budget:               Budget(in.Client.Budget),
		MonthlySubscriptions: MonthlySubscriptions(in.Client.Subscriptions),
		Emergency:            Emergency(in.Client.Emergency, in.Client.Budget),
		Debt:                 Debt(in.Client.Debts, now),
		Portfolio:            alloc,
		RetirementProjection: RetirementProjection(alloc.NetWorth, in.Retirement),
	}
}
