// Package defaults holds the seed values every binding falls back to when the
// durable cache has nothing for its key.
//
// Each function returns a fresh value so callers may mutate the result.
package defaults

import (
	"github.com/vinayprograms/finserve/model"
)

// DemoUserID is the id derived from the demo account alex.m@empower.com.
const DemoUserID = "alexmempowercom"

// DefaultBalance is the starting wallet balance of every client profile.
// All pages share this one constant.
var DefaultBalance = model.NewAmountFromFloat(100.00)

// DefaultMonthlyExpenses stands in for an empty budget when sizing the
// emergency fund.
var DefaultMonthlyExpenses = model.NewAmountFromInt(4000)

func amt(f float64) model.Amount { return model.NewAmountFromFloat(f) }

// ClientData returns the default financial profile. name and email override
// the demo identity when non-empty.
func ClientData(name, email string) model.ClientData {
	cd := model.ClientData{
		Name:    "Alex Morgan",
		Email:   "alex.m@empower.com",
		Balance: DefaultBalance,
		Budget: []model.BudgetItem{
			{Name: "Housing", Spent: amt(1800), Limit: amt(1800), Color: "bg-blue-500"},
			{Name: "Food & Dining", Spent: amt(650), Limit: amt(600), Color: "bg-orange-500"},
			{Name: "Transportation", Spent: amt(320), Limit: amt(400), Color: "bg-green-500"},
			{Name: "Entertainment", Spent: amt(150), Limit: amt(300), Color: "bg-purple-500"},
			{Name: "Utilities", Spent: amt(210), Limit: amt(250), Color: "bg-cyan-500"},
		},
		Cashflow: []model.CashflowItem{
			{Month: "May", In: amt(4200), Out: amt(3800)},
			{Month: "Jun", In: amt(4300), Out: amt(3600)},
			{Month: "Jul", In: amt(4100), Out: amt(4500)},
			{Month: "Aug", In: amt(4800), Out: amt(3200)},
			{Month: "Sep", In: amt(5200), Out: amt(3900)},
			{Month: "Oct", In: amt(5100), Out: amt(2800)},
		},
		Subscriptions: []model.Subscription{
			{ID: 1, Name: "Netflix Premium", Cost: amt(19.99), Cycle: model.CycleMonthly, Icon: "movie", Color: "bg-red-600"},
			{ID: 2, Name: "Spotify Duo", Cost: amt(14.99), Cycle: model.CycleMonthly, Icon: "music_note", Color: "bg-green-500"},
			{ID: 3, Name: "Amazon Prime", Cost: amt(139.00), Cycle: model.CycleYearly, Icon: "shopping_cart", Color: "bg-blue-400"},
		},
		Debts: []model.Debt{
			{Name: "Credit Card (Visa)", Balance: amt(4500), Rate: amt(24.99), Min: amt(150)},
			{Name: "Student Loan", Balance: amt(12000), Rate: amt(5.5), Min: amt(200)},
		},
		Emergency: model.EmergencyFund{Current: amt(12500), Goal: amt(25000)},
	}
	if name != "" {
		cd.Name = name
	}
	if email != "" {
		cd.Email = email
	}
	return cd
}

// Holdings returns the default investment portfolio.
func Holdings() []model.Holding {
	return []model.Holding{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: amt(178.35), Quantity: amt(45), Type: model.AssetStock},
		{Symbol: "MSFT", Name: "Microsoft Corp.", Price: amt(334.20), Quantity: amt(20), Type: model.AssetStock},
		{Symbol: "VTI", Name: "Vanguard Total Stock", Price: amt(224.15), Quantity: amt(110), Type: model.AssetStock},
		{Symbol: "AGG", Name: "iShares Core Bond", Price: amt(98.45), Quantity: amt(200), Type: model.AssetBond},
		{Symbol: "BTC", Name: "Bitcoin", Price: amt(42500.00), Quantity: amt(0.45), Type: model.AssetCrypto},
		{Symbol: "ETH", Name: "Ethereum", Price: amt(2250.00), Quantity: amt(3.5), Type: model.AssetCrypto},
	}
}

// Retirement returns the default projection inputs.
func Retirement() model.RetirementSettings {
	return model.RetirementSettings{
		Rate401k:   amt(12),
		RateRoth:   amt(500),
		CurrentAge: 32,
		RetireAge:  65,
	}
}

// Settings returns the default platform configuration.
func Settings() model.Settings {
	return model.Settings{
		PlatformName:    "Empower",
		MaintenanceMode: false,
		AllowSignups:    true,
		ThemeColor:      "blue",
	}
}

// Users returns the seeded user directory.
func Users() []model.User {
	return []model.User{
		{ID: 1, Name: "Alex Morgan", Email: "alex.m@empower.com", Role: "User", Status: "Active", Plan: "Premium"},
		{ID: 2, Name: "Sarah Jenkins", Email: "sarah.j@example.com", Role: "User", Status: "Active", Plan: "Basic"},
		{ID: 3, Name: "Michael Chen", Email: "m.chen@example.com", Role: "Admin", Status: "Active", Plan: "Staff"},
		{ID: 4, Name: "Jessica Wong", Email: "j.wong@example.com", Role: "User", Status: "Inactive", Plan: "Basic"},
		{ID: 5, Name: "David Smith", Email: "david.s@example.com", Role: "Editor", Status: "Active", Plan: "Pro"},
	}
}

// Transactions returns the seeded ledger, newest first.
func Transactions() []model.Transaction {
	return []model.Transaction{
		{ID: "TXN-93821", User: "Alex Morgan", Amount: amt(1200.00), Type: "Wire Transfer", Status: "Completed", Date: "2023-10-24"},
		{ID: "TXN-93822", User: "Sarah Jenkins", Amount: amt(450.00), Type: "Withdrawal", Status: "Pending", Date: "2023-10-24"},
		{ID: "TXN-93823", User: "Michael Chen", Amount: amt(2500.00), Type: "Deposit", Status: "Completed", Date: "2023-10-23"},
		{ID: "TXN-93824", User: "Jessica Wong", Amount: amt(150.00), Type: "Subscription", Status: "Failed", Date: "2023-10-22"},
		{ID: "TXN-93825", User: "David Smith", Amount: amt(8000.00), Type: "Wire Transfer", Status: "Completed", Date: "2023-10-21"},
	}
}

// Documents returns the seeded document vault.
func Documents() []model.Document {
	return []model.Document{
		{ID: 101, Category: "Report", Title: "Annual Tax Report", Date: "2023", Type: "PDF"},
		{ID: 102, Category: "Report", Title: "Q3 Investment Summary", Date: "Oct 2023", Type: "PDF"},
		{ID: 201, Category: "Document", Title: "Identity_Verification.pdf", Date: "Jan 12, 2023", Type: "Verification"},
		{ID: 202, Category: "Document", Title: "Contract_Signed.pdf", Date: "Feb 28, 2023", Type: "Legal"},
	}
}

// Accounts returns the seeded linked bank accounts.
func Accounts() []model.Account {
	return []model.Account{
		{ID: 1, Name: "Chase Checking", Balance: amt(4250.00), Type: "Bank", Last4: "9921"},
		{ID: 2, Name: "Citi Savings", Balance: amt(12500.00), Type: "Bank", Last4: "4582"},
	}
}

// Articles returns the seeded insights.
func Articles() []model.Article {
	return []model.Article{
		{
			ID:          1,
			Category:    "Tech",
			Title:       "The Rise of DeFi in Traditional Banking",
			Description: "Exploring how decentralized finance is reshaping the global banking infrastructure.",
			Author:      "James Wilson",
			Date:        "Oct 24, 2023",
			ReadTime:    "5 min read",
			Status:      "Published",
			Image:       "https://images.unsplash.com/photo-1639762681485-074b7f938ba0?auto=format&fit=crop&q=80&w=2832&ixlib=rb-4.0.3",
		},
		{
			ID:          2,
			Category:    "Market Watch",
			Title:       "Supply Chain Bottlenecks Ease",
			Description: "Global shipping rates return to normal as production ramps up in key sectors.",
			Author:      "Elena Rodriguez",
			Date:        "Oct 22, 2023",
			ReadTime:    "3 min read",
			Status:      "Published",
			Image:       "https://images.unsplash.com/photo-1586528116311-ad8dd3c8310d?auto=format&fit=crop&q=80&w=2940&ixlib=rb-4.0.3",
		},
	}
}

// Bookings returns an empty booking list.
func Bookings() []model.Booking {
	return []model.Booking{}
}
