package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinayprograms/finserve/defaults"
	"github.com/vinayprograms/finserve/model"
)

func amt(f float64) model.Amount { return model.NewAmountFromFloat(f) }

func TestBudget_Defaults(t *testing.T) {
	sum := Budget(defaults.ClientData("", "").Budget)

	if sum.TotalSpent.String() != "3130" || sum.TotalLimit.String() != "3350" {
		t.Errorf("totals = %s / %s", sum.TotalSpent, sum.TotalLimit)
	}
	if sum.Percent != 93 {
		t.Errorf("percent = %d, want 93", sum.Percent)
	}
	if sum.DailyAvg != 104 {
		t.Errorf("daily average = %d, want 104", sum.DailyAvg)
	}
	if sum.Remaining.String() != "220" {
		t.Errorf("remaining = %s", sum.Remaining)
	}

	food := sum.Categories[1]
	if food.Percent != 100 || !food.Over {
		t.Errorf("overspent category should cap at 100 and flag over: %+v", food)
	}
	if sum.Categories[2].Percent != 80 {
		t.Errorf("transportation = %d, want 80", sum.Categories[2].Percent)
	}
}

func TestBudget_Empty(t *testing.T) {
	sum := Budget(nil)
	if sum.Percent != 0 || len(sum.Categories) != 0 {
		t.Errorf("empty budget = %+v", sum)
	}
}

func TestBudget_ZeroLimitCategory(t *testing.T) {
	sum := Budget([]model.BudgetItem{{Name: "Misc", Spent: amt(10)}})
	if sum.Categories[0].Percent != 0 || !sum.Categories[0].Over {
		t.Errorf("zero limit = %+v", sum.Categories[0])
	}
}

func TestMonthlySubscriptions(t *testing.T) {
	got := MonthlySubscriptions(defaults.ClientData("", "").Subscriptions)
	if got.String() != "46.56" {
		t.Errorf("monthly total = %s, want 46.56", got)
	}
}

func TestEmergency(t *testing.T) {
	cd := defaults.ClientData("", "")
	e := Emergency(cd.Emergency, cd.Budget)

	if e.MonthlyExpenses.String() != "3350" {
		t.Errorf("expenses = %s", e.MonthlyExpenses)
	}
	if e.MonthsCovered.String() != "3.7" {
		t.Errorf("months covered = %s, want 3.7", e.MonthsCovered)
	}
	if e.Progress.String() != "50" {
		t.Errorf("progress = %s, want 50", e.Progress)
	}
}

func TestEmergency_EmptyBudgetUsesFallback(t *testing.T) {
	e := Emergency(model.EmergencyFund{Current: amt(8000), Goal: amt(4000)}, nil)

	if e.MonthlyExpenses.String() != "4000" {
		t.Errorf("expenses = %s, want 4000", e.MonthlyExpenses)
	}
	if e.MonthsCovered.String() != "2" {
		t.Errorf("months = %s", e.MonthsCovered)
	}
	if e.Progress.String() != "100" {
		t.Errorf("progress should cap at 100, got %s", e.Progress)
	}
}

func TestDebt(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	d := Debt(defaults.ClientData("", "").Debts, now)

	if d.TotalDebt.String() != "16500" || d.MonthlyPayment.String() != "850" {
		t.Errorf("debt = %+v", d)
	}
	if d.Months != 20 {
		t.Errorf("months = %d, want 20", d.Months)
	}
	if want := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC); !d.PayoffDate.Equal(want) {
		t.Errorf("payoff date = %v, want %v", d.PayoffDate, want)
	}
}

func TestDebt_NoDebts(t *testing.T) {
	d := Debt(nil, time.Now())
	if d.Months != 0 {
		t.Errorf("months = %d, want 0", d.Months)
	}
}

func TestDebt_NoPayment(t *testing.T) {
	saved := ExtraDebtPayment
	ExtraDebtPayment = decimal.Zero
	defer func() { ExtraDebtPayment = saved }()

	d := Debt([]model.Debt{{Balance: amt(100)}}, time.Now())
	if d.Months != NoPayoff {
		t.Errorf("months = %d, want %d", d.Months, NoPayoff)
	}
}

func TestPortfolio_Defaults(t *testing.T) {
	a := Portfolio(defaults.Holdings(), defaults.DefaultBalance, defaults.Accounts())

	checks := map[string]model.Amount{
		"39366.25":  a.Stocks,
		"19690":     a.Bonds,
		"27000":     a.Crypto,
		"16850":     a.Cash,
		"102906.25": a.NetWorth,
		"38.25":     a.StockPercent,
		"16.37":     a.CashPercent,
	}
	for want, got := range checks {
		if got.String() != want {
			t.Errorf("got %s, want %s", got, want)
		}
	}
}

func TestPortfolio_Empty(t *testing.T) {
	a := Portfolio(nil, model.Amount{}, nil)
	if !a.NetWorth.IsZero() || !a.StockPercent.IsZero() {
		t.Errorf("empty portfolio = %+v", a)
	}
}

func TestRetirementProjection(t *testing.T) {
	tests := []struct {
		name      string
		principal model.Amount
		settings  model.RetirementSettings
		want      string
	}{
		{
			name:      "defaults",
			principal: amt(102906.25),
			settings:  defaults.Retirement(),
			want:      "3100437",
		},
		{
			name:      "ten years",
			principal: amt(10000),
			settings:  model.RetirementSettings{Rate401k: amt(5), RateRoth: amt(100), CurrentAge: 50, RetireAge: 60},
			want:      "105333",
		},
		{
			name:      "already retired",
			principal: amt(5000),
			settings:  model.RetirementSettings{Rate401k: amt(5), RateRoth: amt(100), CurrentAge: 70, RetireAge: 65},
			want:      "5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetirementProjection(tt.principal, tt.settings); got.String() != tt.want {
				t.Errorf("projection = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAdjustFunds_Add(t *testing.T) {
	cd := defaults.ClientData("", "")
	r := defaults.Retirement()

	outCD, outR := AdjustFunds(cd, r, amt(50), Add)

	if outCD.Balance.String() != "150" {
		t.Errorf("balance = %s", outCD.Balance)
	}
	if outCD.Budget[0].Limit.String() != "2700" {
		t.Errorf("housing limit = %s, want 2700", outCD.Budget[0].Limit)
	}
	if outR.Rate401k.String() != "12.5" {
		t.Errorf("401k = %s, want 12.5", outR.Rate401k)
	}
	if cd.Budget[0].Limit.String() != "1800" {
		t.Error("input budget was mutated")
	}
}

func TestAdjustFunds_Remove(t *testing.T) {
	cd := defaults.ClientData("", "")
	outCD, outR := AdjustFunds(cd, defaults.Retirement(), amt(10), Remove)

	if outCD.Balance.String() != "90" {
		t.Errorf("balance = %s", outCD.Balance)
	}
	if outCD.Budget[4].Limit.String() != "225" {
		t.Errorf("utilities limit = %s, want 225", outCD.Budget[4].Limit)
	}
	if outR.Rate401k.String() != "11.9" {
		t.Errorf("401k = %s", outR.Rate401k)
	}
}

func TestAdjustFunds_IgnoresNonPositive(t *testing.T) {
	cd := defaults.ClientData("", "")
	outCD, _ := AdjustFunds(cd, defaults.Retirement(), amt(-5), Add)
	if !outCD.Balance.Equals(cd.Balance) {
		t.Errorf("balance changed on negative amount: %s", outCD.Balance)
	}
}

func TestSummarize(t *testing.T) {
	d := Summarize(Inputs{
		Client:     defaults.ClientData("", ""),
		Accounts:   defaults.Accounts(),
		Holdings:   defaults.Holdings(),
		Retirement: defaults.Retirement(),
	}, time.Now())

	if d.RetirementProjection.String() != "3100437" {
		t.Errorf("projection = %s", d.RetirementProjection)
	}
	if d.Budget.Percent != 93 || d.Debt.Months != 20 {
		t.Errorf("dashboard = %+v", d)
	}
}
