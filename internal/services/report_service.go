// Package services exposes the collaborator surface of the report engine:
// queries, idempotent deletes and the out-of-band recalculation path.
package services

import (
	"context"

	"github.com/shopspring/decimal"

	"reportsvc/internal/core"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ReportStore is the slice of the storage layer the services consume.
type ReportStore interface {
	GetReport(ctx context.Context, userID string, period core.Period) (*core.Report, error)
	ListReportsByUser(ctx context.Context, userID string, offset, limit int) ([]core.Report, error)
	CountReportsByUser(ctx context.Context, userID string) (int64, error)
	ListReportsByPeriodRange(ctx context.Context, userID string, start, end core.Period) ([]core.Report, error)
	DeleteReport(ctx context.Context, userID string, period core.Period) error
	DeleteReportByID(ctx context.Context, userID string, reportID int64) error
	ReplaceTotals(ctx context.Context, userID string, period core.Period, income, expense decimal.Decimal) (*core.Report, error)
}

// ReportPage is one page of a user's reports plus paging metadata.
type ReportPage struct {
	Content       []core.Report
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
	Last          bool
}

// PeriodSummary aggregates a contiguous period range: the per-period rows
// and their accumulated totals, with the summary balance recomputed from
// the accumulated sums.
type PeriodSummary struct {
	UserID       string
	StartPeriod  core.Period
	EndPeriod    core.Period
	Reports      []core.Report
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

// ReportService answers the read and delete operations the REST layer
// calls into the engine with.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// GetReport returns the aggregate for (userID, period).
func (s *ReportService) GetReport(ctx context.Context, userID, period string) (*core.Report, error) {
	p, err := validateUserAndPeriod(userID, period)
	if err != nil {
		return nil, err
	}
	return s.store.GetReport(ctx, userID, p)
}

// ListReports pages through a user's reports, most recent period first.
// Page numbering starts at 0; size is clamped to [1, 100].
func (s *ReportService) ListReports(ctx context.Context, userID string, page, size int) (*ReportPage, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	content, err := s.store.ListReportsByUser(ctx, userID, page*size, size)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountReportsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &ReportPage{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          page >= totalPages-1,
	}, nil
}

// Summary accumulates income, expense and balance across all of a user's
// reports in [start, end], inclusive.
func (s *ReportService) Summary(ctx context.Context, userID, start, end string) (*PeriodSummary, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	startP, err := core.ParsePeriod(start)
	if err != nil {
		return nil, err
	}
	endP, err := core.ParsePeriod(end)
	if err != nil {
		return nil, err
	}
	if startP > endP {
		return nil, core.Invalidf("start period %s is after end period %s", startP, endP)
	}

	reports, err := s.store.ListReportsByPeriodRange(ctx, userID, startP, endP)
	if err != nil {
		return nil, err
	}

	summary := &PeriodSummary{
		UserID:      userID,
		StartPeriod: startP,
		EndPeriod:   endP,
		Reports:     reports,
	}
	for _, r := range reports {
		summary.TotalIncome = summary.TotalIncome.Add(r.TotalIncome)
		summary.TotalExpense = summary.TotalExpense.Add(r.TotalExpense)
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary, nil
}

// DeleteReport removes the report for (userID, period); deleting an absent
// report succeeds as a no-op.
func (s *ReportService) DeleteReport(ctx context.Context, userID, period string) error {
	p, err := validateUserAndPeriod(userID, period)
	if err != nil {
		return err
	}
	return s.store.DeleteReport(ctx, userID, p)
}

// DeleteReportByID removes a report by id when it belongs to userID;
// missing or foreign reports are ignored silently.
func (s *ReportService) DeleteReportByID(ctx context.Context, userID string, reportID int64) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if reportID <= 0 {
		return core.Invalidf("reportId must be a positive number, got %d", reportID)
	}
	return s.store.DeleteReportByID(ctx, userID, reportID)
}

func validateUserID(userID string) error {
	if userID == "" {
		return core.Invalidf("userId cannot be blank")
	}
	return nil
}

func validateUserAndPeriod(userID, period string) (core.Period, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}
	return core.ParsePeriod(period)
}
