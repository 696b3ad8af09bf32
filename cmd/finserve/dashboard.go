package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/finance"
	"github.com/vinayprograms/finserve/model"
	"github.com/vinayprograms/finserve/server"
)

// DashboardCmd renders the session user's dashboard.
type DashboardCmd struct {
	Currency string        `default:"USD" help:"ISO 4217 code used to format amounts"`
	JSON     bool          `help:"Print the raw summary as JSON"`
	Width    int           `default:"100" help:"Word wrap width"`
	Wait     time.Duration `default:"3s" help:"How long to wait for reconciliation"`
}

func (c *DashboardCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		u, ok := a.identity.Current()
		if !ok {
			return ferrors.New(ferrors.ErrCodeUnauthorized, "no session: run finserve login first")
		}
		d, err := server.LoadDashboard(ctx, a.pool, u, c.Wait, time.Now())
		if err != nil {
			return err
		}
		if c.JSON {
			raw, err := json.Marshal(d)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, raw)
		}

		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(c.Width))
		if err != nil {
			return err
		}
		out, err := r.Render(renderDashboard(d, c.Currency))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	})
}

// formatMoney displays a in currency, rounded to the currency's minor unit.
// Unknown codes fall back to the plain decimal.
func formatMoney(a model.Amount, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return a.Decimal().StringFixed(2)
	}
	minor := a.Decimal().Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func renderDashboard(d server.DashboardResponse, currency string) string {
	m := func(a model.Amount) string { return formatMoney(a, currency) }
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Client.Name)
	fmt.Fprintf(&b, "**Wallet balance:** %s  \n", m(d.Summary.Balance))
	fmt.Fprintf(&b, "**Net worth:** %s  \n", m(d.Summary.Portfolio.NetWorth))
	fmt.Fprintf(&b, "**Projected at retirement:** %s\n\n", m(d.Summary.RetirementProjection))
	if len(d.Pending) > 0 {
		fmt.Fprintf(&b, "> still syncing: %s\n\n", strings.Join(d.Pending, ", "))
	}

	bs := d.Summary.Budget
	fmt.Fprintf(&b, "## Budget\n\n%s of %s spent (%d%%), %s remaining\n\n",
		m(bs.TotalSpent), m(bs.TotalLimit), bs.Percent, m(bs.Remaining))
	b.WriteString("| Category | Used | |\n|---|---:|---|\n")
	for _, cat := range bs.Categories {
		flag := ""
		if cat.Over {
			flag = "over"
		}
		fmt.Fprintf(&b, "| %s | %d%% | %s |\n", cat.Name, cat.Percent, flag)
	}

	fmt.Fprintf(&b, "\n## Subscriptions\n\n%s per month\n", m(d.Summary.MonthlySubscriptions))

	em := d.Summary.Emergency
	fmt.Fprintf(&b, "\n## Emergency fund\n\n%s months of %s expenses covered\n",
		em.MonthsCovered.Decimal().StringFixed(1), m(em.MonthlyExpenses))

	debt := d.Summary.Debt
	b.WriteString("\n## Debt\n\n")
	if debt.Months >= finance.NoPayoff {
		fmt.Fprintf(&b, "%s outstanding, no payments scheduled\n", m(debt.TotalDebt))
	} else {
		fmt.Fprintf(&b, "%s outstanding, paid off in %d months (%s)\n",
			m(debt.TotalDebt), debt.Months, debt.PayoffDate.Format("Jan 2006"))
	}

	p := d.Summary.Portfolio
	b.WriteString("\n## Allocation\n\n| Class | Value | Share |\n|---|---:|---:|\n")
	for _, row := range []struct {
		name         string
		value, share model.Amount
	}{
		{"Stocks", p.Stocks, p.StockPercent},
		{"Bonds", p.Bonds, p.BondPercent},
		{"Crypto", p.Crypto, p.CryptoPercent},
		{"Cash", p.Cash, p.CashPercent},
	} {
		fmt.Fprintf(&b, "| %s | %s | %s%% |\n", row.name, m(row.value), row.share.Decimal().StringFixed(1))
	}

	if len(d.Accounts) > 0 {
		b.WriteString("\n## Accounts\n\n| Account | Type | Balance |\n|---|---|---:|\n")
		for _, acct := range d.Accounts {
			fmt.Fprintf(&b, "| %s ····%s | %s | %s |\n", acct.Name, acct.Last4, acct.Type, m(acct.Balance))
		}
	}
	return b.String()
}
