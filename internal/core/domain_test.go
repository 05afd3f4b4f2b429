package core

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2026-02", false},
		{"1999-12", false},
		{"2026-13", true},
		{"2026-00", true},
		{"2026-2", true},
		{"2026/02", true},
		{"", true},
		{"2026-02-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePeriod(%q) should fail", tt.in)
				}
				if !IsValidation(err) {
					t.Errorf("ParsePeriod(%q) error should be a validation error, got %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q) error = %v", tt.in, err)
			}
			if p.String() != tt.in {
				t.Errorf("period = %s, want %s", p, tt.in)
			}
		})
	}
}

func TestPeriodOf(t *testing.T) {
	d := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	if got := PeriodOf(d); got != "2026-02" {
		t.Errorf("PeriodOf = %s, want 2026-02", got)
	}
}

func TestReportApply_BalanceInvariant(t *testing.T) {
	r := &Report{UserID: "u1", Period: "2026-02"}

	r.Apply(ApplyOperation{Type: TypeIncome, Amount: dec("3000"), Date: date(2026, 2, 1)})
	r.Apply(ApplyOperation{Type: TypeExpense, Amount: dec("1200.50"), Date: date(2026, 2, 2)})

	if !r.TotalIncome.Equal(dec("3000")) {
		t.Errorf("totalIncome = %s, want 3000", r.TotalIncome)
	}
	if !r.TotalExpense.Equal(dec("1200.50")) {
		t.Errorf("totalExpense = %s, want 1200.50", r.TotalExpense)
	}
	if !r.Balance.Equal(dec("1799.50")) {
		t.Errorf("balance = %s, want 1799.50", r.Balance)
	}
	if !r.Balance.Equal(r.TotalIncome.Sub(r.TotalExpense)) {
		t.Error("balance invariant violated after apply")
	}
}

func TestReportApply_NegativeAmount(t *testing.T) {
	r := &Report{UserID: "u1", Period: "2025-03"}
	r.Apply(ApplyOperation{Type: TypeExpense, Amount: dec("100"), Date: date(2025, 3, 9)})
	r.Apply(ApplyOperation{Type: TypeExpense, Amount: dec("-100"), Date: date(2025, 3, 9)})

	if !r.TotalExpense.IsZero() {
		t.Errorf("totalExpense = %s, want 0 after reversal", r.TotalExpense)
	}
	if !r.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", r.Balance)
	}
}

func TestTransactionEventValidate(t *testing.T) {
	valid := TransactionEvent{
		UserID: "u1",
		Type:   TypeIncome,
		Amount: dec("10"),
		Date:   date(2026, 1, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(e *TransactionEvent)
	}{
		{"blank user", func(e *TransactionEvent) { e.UserID = "" }},
		{"unknown type", func(e *TransactionEvent) { e.Type = "TRANSFER" }},
		{"zero amount", func(e *TransactionEvent) { e.Amount = dec("0") }},
		{"negative amount", func(e *TransactionEvent) { e.Amount = dec("-5") }},
		{"missing date", func(e *TransactionEvent) { e.Date = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}
