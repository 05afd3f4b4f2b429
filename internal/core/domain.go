// Package core holds the domain model of the report aggregation engine:
// transaction events consumed from the broker, the signed operations they
// expand into, and the per-user per-period Report aggregate.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Invert swaps INCOME and EXPENSE. Used to cancel the balance contribution
// of a deleted transaction.
func (t TransactionType) Invert() TransactionType {
	if t == TypeIncome {
		return TypeExpense
	}
	return TypeIncome
}

// EventKind identifies which lifecycle queue a transaction event came from.
type EventKind string

const (
	EventCreated EventKind = "transaction.created"
	EventUpdated EventKind = "transaction.updated"
	EventDeleted EventKind = "transaction.deleted"
)

// TransactionEvent is an inbound transaction lifecycle message after
// decoding and validation. PreviousAmount and PreviousDate are only set on
// update events and signal that the event replaces an earlier contribution.
type TransactionEvent struct {
	MessageID      string
	TransactionID  int64
	UserID         string
	Type           TransactionType
	Amount         decimal.Decimal
	Date           time.Time
	Category       string
	Description    string
	PreviousAmount *decimal.Decimal
	PreviousDate   *time.Time
}

// HasPrevious reports whether the event carries a compensating value to
// undo before applying the new one.
func (e TransactionEvent) HasPrevious() bool {
	return e.PreviousAmount != nil && e.PreviousDate != nil
}

// Validate checks the fields every event kind must carry. Amounts must be
// strictly positive; a reversal becomes negative only through expansion.
func (e TransactionEvent) Validate() error {
	if e.UserID == "" {
		return Invalidf("userId cannot be blank")
	}
	if !e.Type.Valid() {
		return Invalidf("unknown transaction type %q", string(e.Type))
	}
	if !e.Amount.IsPositive() {
		return Invalidf("amount must be positive, got %s", e.Amount)
	}
	if e.Date.IsZero() {
		return Invalidf("date is required")
	}
	return nil
}

// ApplyOperation is the only primitive the aggregate store understands.
// Amount is already signed: forward operations are positive, reversals
// negative. Every event kind reduces to one or two of these.
type ApplyOperation struct {
	Type   TransactionType
	Amount decimal.Decimal
	Date   time.Time
}

// Period returns the calendar-month bucket the operation lands in.
func (op ApplyOperation) Period() Period {
	return PeriodOf(op.Date)
}

// Report is the aggregate: running income, expense and balance totals for
// one user and one calendar month.
type Report struct {
	ID           int64
	UserID       string
	Period       Period
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Apply adds the signed amount to the matching total and recomputes the
// balance. This is the single mutation step; callers persist the result.
func (r *Report) Apply(op ApplyOperation) {
	switch op.Type {
	case TypeIncome:
		r.TotalIncome = r.TotalIncome.Add(op.Amount)
	case TypeExpense:
		r.TotalExpense = r.TotalExpense.Add(op.Amount)
	}
	r.Recompute()
}

// Recompute restores the balance invariant: balance = income - expense.
func (r *Report) Recompute() {
	r.Balance = r.TotalIncome.Sub(r.TotalExpense)
}
