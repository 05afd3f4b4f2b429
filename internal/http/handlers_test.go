package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reportsvc/internal/core"
	"reportsvc/internal/log"
	"reportsvc/internal/services"
)

type fakeReports struct {
	reports map[string]*core.Report // keyed "userID|period"

	deletedPeriods []string
	deletedIDs     []int64

	lastToken string
}

func (f *fakeReports) key(userID, period string) string { return userID + "|" + period }

func (f *fakeReports) GetReport(_ context.Context, userID, period string) (*core.Report, error) {
	if userID == "" {
		return nil, core.Invalidf("userId cannot be blank")
	}
	if _, err := core.ParsePeriod(period); err != nil {
		return nil, err
	}
	r, ok := f.reports[f.key(userID, period)]
	if !ok {
		return nil, core.ErrReportNotFound
	}
	return r, nil
}

func (f *fakeReports) ListReports(_ context.Context, userID string, page, size int) (*services.ReportPage, error) {
	if userID == "" {
		return nil, core.Invalidf("userId cannot be blank")
	}
	if size <= 0 {
		size = 10
	}
	var content []core.Report
	for _, r := range f.reports {
		if r.UserID == userID {
			content = append(content, *r)
		}
	}
	return &services.ReportPage{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: int64(len(content)),
		TotalPages:    1,
		Last:          true,
	}, nil
}

func (f *fakeReports) Summary(_ context.Context, userID, start, end string) (*services.PeriodSummary, error) {
	if userID == "" {
		return nil, core.Invalidf("userId cannot be blank")
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
	summary := &services.PeriodSummary{UserID: userID, StartPeriod: startP, EndPeriod: endP}
	for _, r := range f.reports {
		if r.UserID == userID && r.Period >= startP && r.Period <= endP {
			summary.Reports = append(summary.Reports, *r)
			summary.TotalIncome = summary.TotalIncome.Add(r.TotalIncome)
			summary.TotalExpense = summary.TotalExpense.Add(r.TotalExpense)
		}
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary, nil
}

func (f *fakeReports) DeleteReport(_ context.Context, userID, period string) error {
	if userID == "" {
		return core.Invalidf("userId cannot be blank")
	}
	if _, err := core.ParsePeriod(period); err != nil {
		return err
	}
	f.deletedPeriods = append(f.deletedPeriods, period)
	return nil
}

func (f *fakeReports) DeleteReportByID(_ context.Context, userID string, reportID int64) error {
	if userID == "" {
		return core.Invalidf("userId cannot be blank")
	}
	if reportID <= 0 {
		return core.Invalidf("reportId must be a positive number, got %d", reportID)
	}
	f.deletedIDs = append(f.deletedIDs, reportID)
	return nil
}

func (f *fakeReports) Recalculate(_ context.Context, userID, period, token string) (*core.Report, error) {
	f.lastToken = token
	if userID == "" {
		return nil, core.Invalidf("userId cannot be blank")
	}
	if _, err := core.ParsePeriod(period); err != nil {
		return nil, err
	}
	r, ok := f.reports[f.key(userID, period)]
	if !ok {
		return nil, core.ErrReportNotFound
	}
	if token == "fail-upstream" {
		return nil, &core.IntegrationError{Msg: "transaction service unavailable", Err: fmt.Errorf("dial tcp: refused")}
	}
	return r, nil
}

func testReport(userID, period string, income, expense string) *core.Report {
	in := decimal.RequireFromString(income)
	ex := decimal.RequireFromString(expense)
	return &core.Report{
		ID:           42,
		UserID:       userID,
		Period:       core.Period(period),
		TotalIncome:  in,
		TotalExpense: ex,
		Balance:      in.Sub(ex),
		CreatedAt:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, fake *fakeReports) *httptest.Server {
	t.Helper()
	logger := log.New(slog.LevelError, "test")
	srv := NewServer(":0", NewHandler(fake, fake, logger), logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, userID string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestGetReport_OK(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{
		"user-1|2025-03": testReport("user-1", "2025-03", "3000", "1200.5"),
	}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports/2025-03", "user-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Period != "2025-03" || body.TotalIncome != "3000" || body.TotalExpense != "1200.5" || body.Balance != "1799.5" {
		t.Errorf("unexpected body: %+v", body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %s", resp.Header.Get("Content-Type"))
	}
}

func TestGetReport_NotFound(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports/2025-03", "user-1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error == "" {
		t.Error("error body should carry a message")
	}
}

func TestGetReport_BadPeriod(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports/2025-13", "user-1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetReport_MissingUser(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports/2025-03", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListReports_OK(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{
		"user-1|2025-03": testReport("user-1", "2025-03", "3000", "1200.5"),
	}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports?page=0&size=20", "user-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body reportPageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Content) != 1 || body.TotalElements != 1 || !body.Last {
		t.Errorf("unexpected page: %+v", body)
	}
	if body.Size != 20 {
		t.Errorf("size = %d, want 20", body.Size)
	}
}

func TestListReports_IgnoresJunkPaging(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports?page=abc&size=xyz", "user-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSummary_OK(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{
		"user-1|2025-02": testReport("user-1", "2025-02", "1000", "400"),
		"user-1|2025-03": testReport("user-1", "2025-03", "3000", "1200.5"),
	}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports/summary?start=2025-01&end=2025-12", "user-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.TotalIncome != "4000" || body.TotalExpense != "1600.5" || body.Balance != "2399.5" {
		t.Errorf("unexpected totals: %+v", body)
	}
	if len(body.Reports) != 2 {
		t.Errorf("reports = %d, want 2", len(body.Reports))
	}
}

func TestSummary_InvertedRange(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/reports/summary?start=2025-06&end=2025-01", "user-1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteReport_NoContent(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodDelete, "/api/v1/reports/2025-03", "user-1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(fake.deletedPeriods) != 1 || fake.deletedPeriods[0] != "2025-03" {
		t.Errorf("deleted periods = %v", fake.deletedPeriods)
	}
}

func TestDeleteReportByID_NoContent(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodDelete, "/api/v1/reports/id/42", "user-1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(fake.deletedIDs) != 1 || fake.deletedIDs[0] != 42 {
		t.Errorf("deleted ids = %v", fake.deletedIDs)
	}
}

func TestDeleteReportByID_NotANumber(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodDelete, "/api/v1/reports/id/abc", "user-1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRecalculate_OK(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{
		"user-1|2025-03": testReport("user-1", "2025-03", "3000", "1200.5"),
	}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/reports/2025-03/recalculate", "user-1",
		map[string]string{"Authorization": "Bearer token-abc"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if fake.lastToken != "Bearer token-abc" {
		t.Errorf("token forwarded = %q", fake.lastToken)
	}
	var body reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Balance != "1799.5" {
		t.Errorf("balance = %s", body.Balance)
	}
}

func TestRecalculate_UpstreamFailure(t *testing.T) {
	fake := &fakeReports{reports: map[string]*core.Report{
		"user-1|2025-03": testReport("user-1", "2025-03", "3000", "1200.5"),
	}}
	ts := newTestServer(t, fake)

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/reports/2025-03/recalculate", "user-1",
		map[string]string{"Authorization": "fail-upstream"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !strings.Contains(body.Error, "transaction service unavailable") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestRecalculate_MissingReport(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/reports/2025-03/recalculate", "user-1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeReports{reports: map[string]*core.Report{}})

	resp := doRequest(t, ts, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
