package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"reportsvc/internal/core"
)

const reportColumns = `report_id, user_id, period, total_income, total_expense, balance, created_at, updated_at`

// FindOrCreateReport returns the report row for (userID, period), creating
// and persisting a zero-initialized one if none exists yet. The row is
// inserted immediately so its identity is stable for operations applied
// later in the same processing step.
func (s *Store) FindOrCreateReport(ctx context.Context, userID string, period core.Period) (*core.Report, error) {
	// The insert is a no-op when a concurrent worker created the row first;
	// the follow-up select then observes whichever row won.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (user_id, period)
		VALUES (?, ?)
		ON CONFLICT (user_id, period) DO NOTHING`,
		userID, period.String())
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	return s.GetReport(ctx, userID, period)
}

// ApplyOperation folds one signed operation into the report bucket the
// operation's date falls in, recomputes the balance and persists.
//
// Note: find-or-create, apply and save are not serialized across workers;
// two concurrent mutations of the same bucket can lose an update. The
// recalculation path exists to correct drift.
func (s *Store) ApplyOperation(ctx context.Context, userID string, op core.ApplyOperation) (*core.Report, error) {
	report, err := s.FindOrCreateReport(ctx, userID, op.Period())
	if err != nil {
		return nil, err
	}

	report.Apply(op)

	_, err = s.db.ExecContext(ctx, `
		UPDATE reports
		SET total_income = ?, total_expense = ?, balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE report_id = ?`,
		report.TotalIncome.String(), report.TotalExpense.String(), report.Balance.String(), report.ID)
	if err != nil {
		return nil, fmt.Errorf("save report %d: %w", report.ID, err)
	}

	slog.InfoContext(ctx, "Applied operation to report",
		"report_id", report.ID,
		"user_id", userID,
		"period", report.Period.String(),
		"type", string(op.Type),
		"amount", op.Amount.String(),
		"balance", report.Balance.String())

	return report, nil
}

// ReplaceTotals overwrites the totals of an existing report with freshly
// computed sums and recomputes the balance from them. Returns
// core.ErrReportNotFound if no report exists; the recalculation path
// corrects, it does not create.
func (s *Store) ReplaceTotals(ctx context.Context, userID string, period core.Period, income, expense decimal.Decimal) (*core.Report, error) {
	balance := income.Sub(expense)

	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET total_income = ?, total_expense = ?, balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND period = ?`,
		income.String(), expense.String(), balance.String(), userID, period.String())
	if err != nil {
		return nil, fmt.Errorf("replace report totals: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("replace report totals: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("replace totals for user %s period %s: %w", userID, period, core.ErrReportNotFound)
	}

	return s.GetReport(ctx, userID, period)
}

// GetReport fetches the report for (userID, period) or returns
// core.ErrReportNotFound.
func (s *Store) GetReport(ctx context.Context, userID string, period core.Period) (*core.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE user_id = ? AND period = ?`,
		userID, period.String())

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report for user %s period %s: %w", userID, period, core.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// ListReportsByUser pages through a user's reports, most recent period
// first.
func (s *Store) ListReportsByUser(ctx context.Context, userID string, offset, limit int) ([]core.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE user_id = ?
		ORDER BY period DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// CountReportsByUser returns the total number of reports a user has.
func (s *Store) CountReportsByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// ListReportsByPeriodRange returns a user's reports with start <= period
// <= end, in ascending period order. Lexicographic comparison is correct
// for yyyy-MM strings.
func (s *Store) ListReportsByPeriodRange(ctx context.Context, userID string, start, end core.Period) ([]core.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE user_id = ? AND period >= ? AND period <= ?
		ORDER BY period ASC`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list reports by period range: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// DeleteReport removes the report for (userID, period). Deleting a report
// that does not exist succeeds as a no-op so repeated deletes observe the
// same outcome.
func (s *Store) DeleteReport(ctx context.Context, userID string, period core.Period) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reports WHERE user_id = ? AND period = ?`,
		userID, period.String())
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Report deleted", "user_id", userID, "period", period.String())
	}
	return nil
}

// DeleteReportByID removes a report by id, only when it belongs to userID.
// A missing or foreign report is ignored silently; ownership of other
// users' reports is not revealed.
func (s *Store) DeleteReportByID(ctx context.Context, userID string, reportID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reports WHERE report_id = ? AND user_id = ?`,
		reportID, userID)
	if err != nil {
		return fmt.Errorf("delete report by id: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Report deleted", "report_id", reportID, "user_id", userID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*core.Report, error) {
	var (
		r                        core.Report
		period                   string
		income, expense, balance string
		createdAt, updatedAt     time.Time
	)
	if err := row.Scan(&r.ID, &r.UserID, &period, &income, &expense, &balance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	r.Period = core.Period(period)
	r.CreatedAt = createdAt
	r.UpdatedAt = updatedAt

	var err error
	if r.TotalIncome, err = decimal.NewFromString(income); err != nil {
		return nil, fmt.Errorf("parse total_income %q: %w", income, err)
	}
	if r.TotalExpense, err = decimal.NewFromString(expense); err != nil {
		return nil, fmt.Errorf("parse total_expense %q: %w", expense, err)
	}
	if r.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}

	return &r, nil
}

func collectReports(rows *sql.Rows) ([]core.Report, error) {
	var reports []core.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}
