// Package finance computes the dashboard figures derived from a client's
// stored profile, accounts, holdings and retirement settings.
//
// All arithmetic is exact decimal; rounding happens only where a figure is
// presented as a whole percentage or whole currency unit.
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinayprograms/finserve/defaults"
	"github.com/vinayprograms/finserve/model"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Constants used by the projections.
var (
	// ExtraDebtPayment is the assumed monthly payment on top of minimums.
	ExtraDebtPayment = decimal.NewFromInt(500)

	// RetirementReturn is the assumed average annual return.
	RetirementReturn = decimal.NewFromFloat(0.07)

	// ReferenceSalary scales the 401k contribution percentage.
	ReferenceSalary = decimal.NewFromInt(100000)

	// RetirementAdjustRate is the 401k change per unit of admin fund adjustment.
	RetirementAdjustRate = decimal.NewFromFloat(0.01)
)

// NoPayoff is reported when no payment is being made.
const NoPayoff = 999

// BudgetSummary is the budget widget.
type BudgetSummary struct {
	TotalSpent model.Amount     `json:"totalSpent"`
	TotalLimit model.Amount     `json:"totalLimit"`
	Remaining  model.Amount     `json:"remaining"`
	Percent    int64            `json:"percent"`
	DailyAvg   int64            `json:"dailyAverage"`
	Categories []CategoryStatus `json:"categories"`
}

// CategoryStatus is one budget bar.
type CategoryStatus struct {
	Name    string `json:"name"`
	Percent int64  `json:"percent"`
	Over    bool   `json:"over"`
}

// Budget totals spending against limits. Percent is rounded; category bars
// are capped at 100.
func Budget(items []model.BudgetItem) BudgetSummary {
	spent, limit := decimal.Zero, decimal.Zero
	cats := make([]CategoryStatus, 0, len(items))
	for _, it := range items {
		s, l := it.Spent.Decimal(), it.Limit.Decimal()
		spent = spent.Add(s)
		limit = limit.Add(l)

		pct := int64(0)
		if l.IsPositive() {
			pct = min(100, s.Div(l).Mul(hundred).Round(0).IntPart())
		}
		cats = append(cats, CategoryStatus{Name: it.Name, Percent: pct, Over: s.GreaterThan(l)})
	}

	sum := BudgetSummary{
		TotalSpent: model.NewAmount(spent),
		TotalLimit: model.NewAmount(limit),
		Remaining:  model.NewAmount(limit.Sub(spent)),
		DailyAvg:   spent.Div(decimal.NewFromInt(30)).Round(0).IntPart(),
		Categories: cats,
	}
	if limit.IsPositive() {
		sum.Percent = spent.Div(limit).Mul(hundred).Round(0).IntPart()
	}
	return sum
}

// MonthlySubscriptions normalizes every subscription to a monthly cost.
func MonthlySubscriptions(subs []model.Subscription) model.Amount {
	total := decimal.Zero
	for _, s := range subs {
		cost := s.Cost.Decimal()
		if s.Cycle == model.CycleYearly {
			cost = cost.Div(twelve)
		}
		total = total.Add(cost)
	}
	return model.NewAmount(total.Round(2))
}

// EmergencySummary is the emergency fund widget.
type EmergencySummary struct {
	MonthlyExpenses model.Amount `json:"monthlyExpenses"`
	MonthsCovered   model.Amount `json:"monthsCovered"`
	Progress        model.Amount `json:"progress"`
}

// Emergency sizes the fund against the budget limit total, or
// defaults.DefaultMonthlyExpenses when the budget is empty.
func Emergency(fund model.EmergencyFund, budget []model.BudgetItem) EmergencySummary {
	expenses := decimal.Zero
	for _, it := range budget {
		expenses = expenses.Add(it.Limit.Decimal())
	}
	if !expenses.IsPositive() {
		expenses = defaults.DefaultMonthlyExpenses.Decimal()
	}

	current, goal := fund.Current.Decimal(), fund.Goal.Decimal()
	progress := decimal.Zero
	if goal.IsPositive() {
		progress = decimal.Min(hundred, current.Div(goal).Mul(hundred))
	}
	return EmergencySummary{
		MonthlyExpenses: model.NewAmount(expenses),
		MonthsCovered:   model.NewAmount(current.Div(expenses).Round(1)),
		Progress:        model.NewAmount(progress.Round(2)),
	}
}

// DebtSummary is the debt payoff widget.
type DebtSummary struct {
	TotalDebt      model.Amount `json:"totalDebt"`
	MonthlyPayment model.Amount `json:"monthlyPayment"`
	Months         int64        `json:"months"`
	PayoffDate     time.Time    `json:"payoffDate"`
}

// Debt estimates months to payoff paying minimums plus ExtraDebtPayment.
func Debt(debts []model.Debt, now time.Time) DebtSummary {
	total, mins := decimal.Zero, decimal.Zero
	for _, d := range debts {
		total = total.Add(d.Balance.Decimal())
		mins = mins.Add(d.Min.Decimal())
	}
	payment := mins.Add(ExtraDebtPayment)

	months := int64(NoPayoff)
	if payment.IsPositive() {
		months = total.Div(payment).Ceil().IntPart()
	}
	return DebtSummary{
		TotalDebt:      model.NewAmount(total),
		MonthlyPayment: model.NewAmount(payment),
		Months:         months,
		PayoffDate:     now.AddDate(0, int(months), 0),
	}
}

// Allocation is the portfolio split by asset class.
type Allocation struct {
	Stocks        model.Amount `json:"stocks"`
	Bonds         model.Amount `json:"bonds"`
	Crypto        model.Amount `json:"crypto"`
	Cash          model.Amount `json:"cash"`
	NetWorth      model.Amount `json:"netWorth"`
	StockPercent  model.Amount `json:"stockPercent"`
	BondPercent   model.Amount `json:"bondPercent"`
	CryptoPercent model.Amount `json:"cryptoPercent"`
	CashPercent   model.Amount `json:"cashPercent"`
}

// Portfolio values holdings, wallet and linked accounts. Linked accounts
// count as cash.
func Portfolio(holdings []model.Holding, wallet model.Amount, accounts []model.Account) Allocation {
	stocks, bonds, crypto := decimal.Zero, decimal.Zero, decimal.Zero
	for _, h := range holdings {
		v := h.Value().Decimal()
		switch h.Type {
		case model.AssetStock:
			stocks = stocks.Add(v)
		case model.AssetBond:
			bonds = bonds.Add(v)
		case model.AssetCrypto:
			crypto = crypto.Add(v)
		}
	}
	cash := wallet.Decimal()
	for _, a := range accounts {
		cash = cash.Add(a.Balance.Decimal())
	}
	net := stocks.Add(bonds).Add(crypto).Add(cash)

	pct := func(v decimal.Decimal) model.Amount {
		if !net.IsPositive() {
			return model.Amount{}
		}
		return model.NewAmount(v.Div(net).Mul(hundred).Round(2))
	}
	return Allocation{
		Stocks:        model.NewAmount(stocks),
		Bonds:         model.NewAmount(bonds),
		Crypto:        model.NewAmount(crypto),
		Cash:          model.NewAmount(cash),
		NetWorth:      model.NewAmount(net),
		StockPercent:  pct(stocks),
		BondPercent:   pct(bonds),
		CryptoPercent: pct(crypto),
		CashPercent:   pct(cash),
	}
}

// RetirementProjection compounds principal at RetirementReturn and adds the
// annual Roth and 401k contributions as an annuity. The result is floored
// to whole currency units.
func RetirementProjection(principal model.Amount, r model.RetirementSettings) model.Amount {
	years := int64(r.RetireAge - r.CurrentAge)
	if years < 0 {
		years = 0
	}
	growth := decimal.NewFromInt(1).Add(RetirementReturn).Pow(decimal.NewFromInt(years))

	annual := r.RateRoth.Decimal().Mul(twelve).
		Add(ReferenceSalary.Mul(r.Rate401k.Decimal()).Div(hundred))
	annuity := growth.Sub(decimal.NewFromInt(1)).Div(RetirementReturn)

	projected := principal.Decimal().Mul(growth).Add(annual.Mul(annuity))
	return model.NewAmount(projected.Floor())
}

// Direction of an admin fund adjustment.
type Direction int

const (
	Add Direction = iota
	Remove
)

// AdjustFunds applies an administrator deposit or withdrawal: the balance
// moves by amount, each budget limit moves in proportion to its share of the
// old balance, and the 401k rate moves by amount×RetirementAdjustRate.
// Non-positive amounts leave both values unchanged.
func AdjustFunds(cd model.ClientData, r model.RetirementSettings, amount model.Amount, dir Direction) (model.ClientData, model.RetirementSettings) {
	amt := amount.Decimal()
	if !amt.IsPositive() {
		return cd, r
	}
	if dir == Remove {
		amt = amt.Neg()
	}

	oldBalance := cd.Balance.Decimal()
	out := cd
	out.Balance = model.NewAmount(oldBalance.Add(amt))
	out.Budget = make([]model.BudgetItem, len(cd.Budget))
	for i, it := range cd.Budget {
		if !oldBalance.IsZero() {
			share := it.Limit.Decimal().Div(oldBalance)
			it.Limit = model.NewAmount(it.Limit.Decimal().Add(amt.Mul(share)))
		}
		out.Budget[i] = it
	}

	rOut := r
	rOut.Rate401k = model.NewAmount(r.Rate401k.Decimal().Add(amt.Mul(RetirementAdjustRate)))
	return out, rOut
}
