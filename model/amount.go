package model

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal quantity (money, percentages, share counts).
// It encodes as a bare JSON number and accepts numbers or numeric strings.
type Amount struct {
	value decimal.Decimal
}

// NewAmount wraps a decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// NewAmountFromFloat converts a float literal.
func NewAmountFromFloat(f float64) Amount {
	return Amount{value: decimal.NewFromFloat(f)}
}

// NewAmountFromInt converts an integer.
func NewAmountFromInt(i int64) Amount {
	return Amount{value: decimal.NewFromInt(i)}
}

// ParseAmount parses a decimal string.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{value: d}, nil
}

// Decimal returns the underlying value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

func (a Amount) Add(b Amount) Amount { return Amount{a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount { return Amount{a.value.Sub(b.value)} }
func (a Amount) Mul(b Amount) Amount { return Amount{a.value.Mul(b.value)} }

func (a Amount) IsZero() bool     { return a.value.IsZero() }
func (a Amount) IsPositive() bool { return a.value.IsPositive() }

func (a Amount) Equals(b Amount) bool { return a.value.Equal(b.value) }

// Float returns the nearest float64.
func (a Amount) Float() float64 {
	f, _ := a.value.Float64()
	return f
}

func (a Amount) String() string {
	return a.value.String()
}

// MarshalJSON writes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts 12.5, "12.5" and null (zero).
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.value = decimal.Zero
		return nil
	}
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.value = d
	return nil
}

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.value)
	}
	return Amount{total}
}
