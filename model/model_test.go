package model

import (
	"encoding/json"
	"testing"
)

func TestAmount_MarshalBareNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Balance Amount `json:"balance"`
	}{NewAmountFromFloat(1248300)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"balance":1248300}` {
		t.Errorf("got %s", b)
	}
}

func TestAmount_UnmarshalForms(t *testing.T) {
	tests := map[string]string{
		`19.99`:   "19.99",
		`"19.99"`: "19.99",
		`null`:    "0",
		`0`:       "0",
	}
	for in, want := range tests {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err != nil {
			t.Errorf("Unmarshal(%s): %v", in, err)
			continue
		}
		if a.String() != want {
			t.Errorf("Unmarshal(%s) = %s, want %s", in, a, want)
		}
	}
}

func TestAmount_UnmarshalInvalid(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`"abc"`), &a); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestAmount_ExactArithmetic(t *testing.T) {
	a := NewAmountFromFloat(0.1).Add(NewAmountFromFloat(0.2))
	if !a.Equals(NewAmountFromFloat(0.3)) {
		t.Errorf("0.1 + 0.2 = %s", a)
	}
	if got := Sum(NewAmountFromInt(1), NewAmountFromInt(2), NewAmountFromInt(3)); got.String() != "6" {
		t.Errorf("Sum = %s", got)
	}
}

func TestHolding_Value(t *testing.T) {
	h := Holding{Price: NewAmountFromFloat(42500), Quantity: NewAmountFromFloat(0.45)}
	if got := h.Value(); got.String() != "19125" {
		t.Errorf("Value = %s", got)
	}
}

func TestClientData_DecodesStoredDocument(t *testing.T) {
	raw := `{"name":"Alex Morgan","email":"alex.m@empower.com","balance":100,
		"budget":[{"name":"Housing","spent":1800,"limit":1800,"color":"bg-blue-500"}],
		"cashflow":[{"month":"May","in":4200,"out":3800}],
		"subscriptions":[{"id":3,"name":"Amazon Prime","cost":139,"cycle":"Yearly"}],
		"debts":[{"name":"Student Loan","balance":12000,"rate":5.5,"min":200}],
		"emergency":{"current":12500,"goal":25000}}`

	var cd ClientData
	if err := json.Unmarshal([]byte(raw), &cd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cd.Balance.String() != "100" || cd.Cashflow[0].In.String() != "4200" {
		t.Errorf("unexpected decode: %+v", cd)
	}
	if cd.Subscriptions[0].Cycle != CycleYearly {
		t.Errorf("cycle = %s", cd.Subscriptions[0].Cycle)
	}
}

func TestRecordID(t *testing.T) {
	var ids []Identified = []Identified{
		Transaction{ID: "TXN-1"},
		User{ID: 2},
		Booking{ID: 3},
		Article{ID: 4},
		Document{ID: 5},
		Account{ID: 6},
	}
	want := []string{"TXN-1", "2", "3", "4", "5", "6"}
	for i, rec := range ids {
		if rec.RecordID() != want[i] {
			t.Errorf("RecordID[%d] = %s, want %s", i, rec.RecordID(), want[i])
		}
	}
}
