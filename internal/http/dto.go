package http

import (
	"time"

	"reportsvc/internal/core"
	"reportsvc/internal/services"
)

// reportResponse mirrors the aggregate row; monetary fields are rendered
// as decimal strings so clients never round them through float64.
type reportResponse struct {
	ReportID     int64     `json:"reportId"`
	UserID       string    `json:"userId"`
	Period       string    `json:"period"`
	TotalIncome  string    `json:"totalIncome"`
	TotalExpense string    `json:"totalExpense"`
	Balance      string    `json:"balance"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type reportPageResponse struct {
	Content       []reportResponse `json:"content"`
	Page          int              `json:"page"`
	Size          int              `json:"size"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	Last          bool             `json:"last"`
}

type summaryResponse struct {
	UserID       string           `json:"userId"`
	StartPeriod  string           `json:"startPeriod"`
	EndPeriod    string           `json:"endPeriod"`
	Reports      []reportResponse `json:"reports"`
	TotalIncome  string           `json:"totalIncome"`
	TotalExpense string           `json:"totalExpense"`
	Balance      string           `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toReportResponse(r *core.Report) reportResponse {
	return reportResponse{
		ReportID:     r.ID,
		UserID:       r.UserID,
		Period:       string(r.Period),
		TotalIncome:  r.TotalIncome.String(),
		TotalExpense: r.TotalExpense.String(),
		Balance:      r.Balance.String(),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toReportResponses(reports []core.Report) []reportResponse {
	out := make([]reportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toReportResponse(&reports[i]))
	}
	return out
}

func toPageResponse(p *services.ReportPage) reportPageResponse {
	return reportPageResponse{
		Content:       toReportResponses(p.Content),
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Last:          p.Last,
	}
}

func toSummaryResponse(s *services.PeriodSummary) summaryResponse {
	return summaryResponse{
		UserID:       s.UserID,
		StartPeriod:  string(s.StartPeriod),
		EndPeriod:    string(s.EndPeriod),
		Reports:      toReportResponses(s.Reports),
		TotalIncome:  s.TotalIncome.String(),
		TotalExpense: s.TotalExpense.String(),
		Balance:      s.Balance.String(),
	}
}
