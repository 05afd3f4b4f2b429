package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"reportsvc/internal/client"
	"reportsvc/internal/core"
)

// TransactionSource fetches the authoritative transactions for a period.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, period core.Period, token string) ([]client.TransactionData, error)
}

// RecalculationService rebuilds an aggregate from the transaction source,
// independent of the event stream and the idempotency ledger. It exists
// because a retry-exhausted event is marked processed without taking
// effect; recalculation is the correction mechanism.
type RecalculationService struct {
	store  ReportStore
	source TransactionSource
}

func NewRecalculationService(store ReportStore, source TransactionSource) *RecalculationService {
	return &RecalculationService{store: store, source: source}
}

// Recalculate replaces the totals of an existing report with sums computed
// from scratch over the period's authoritative transactions. The report
// must already exist; this path corrects, it does not create. On any
// fetch failure the local state is left unchanged.
func (s *RecalculationService) Recalculate(ctx context.Context, userID, period, token string) (*core.Report, error) {
	p, err := validateUserAndPeriod(userID, period)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetReport(ctx, userID, p); err != nil {
		return nil, err
	}

	transactions, err := s.source.FetchTransactions(ctx, p, token)
	if err != nil {
		return nil, err
	}

	var income, expense decimal.Decimal
	for _, tx := range transactions {
		switch core.TransactionType(tx.Type) {
		case core.TypeIncome:
			income = income.Add(tx.Amount)
		case core.TypeExpense:
			expense = expense.Add(tx.Amount)
		}
	}

	report, err := s.store.ReplaceTotals(ctx, userID, p, income, expense)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Report recalculated from transaction source",
		"user_id", userID,
		"period", p.String(),
		"transactions", len(transactions),
		"total_income", report.TotalIncome.String(),
		"total_expense", report.TotalExpense.String())

	return report, nil
}
