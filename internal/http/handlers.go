package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reportsvc/internal/core"
	"reportsvc/internal/log"
	"reportsvc/internal/services"
)

// userIDHeader carries the caller identity; the gateway in front of this
// service resolves the auth token and injects it.
const userIDHeader = "X-User-Id"

// ReportReader is the slice of the report service the handlers consume.
type ReportReader interface {
	GetReport(ctx context.Context, userID, period string) (*core.Report, error)
	ListReports(ctx context.Context, userID string, page, size int) (*services.ReportPage, error)
	Summary(ctx context.Context, userID, start, end string) (*services.PeriodSummary, error)
	DeleteReport(ctx context.Context, userID, period string) error
	DeleteReportByID(ctx context.Context, userID string, reportID int64) error
}

// Recalculator rebuilds one report from the authoritative transaction source.
type Recalculator interface {
	Recalculate(ctx context.Context, userID, period, token string) (*core.Report, error)
}

// Handler holds the dependencies of the REST surface.
type Handler struct {
	reports ReportReader
	recalc  Recalculator
	logger  *log.Logger
}

func NewHandler(reports ReportReader, recalc Recalculator, logger *log.Logger) *Handler {
	return &Handler{
		reports: reports,
		recalc:  recalc,
		logger:  logger.WithComponent(log.ComponentAPI),
	}
}

// GetReport handles GET /api/v1/reports/{period}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	period := chi.URLParam(r, "period")

	report, err := h.reports.GetReport(r.Context(), userID, period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toReportResponse(report))
}

// ListReports handles GET /api/v1/reports?page=&size=.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", 0)

	result, err := h.reports.ListReports(r.Context(), userID, page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPageResponse(result))
}

// Summary handles GET /api/v1/reports/summary?start=&end=.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	summary, err := h.reports.Summary(r.Context(), userID, start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// DeleteReport handles DELETE /api/v1/reports/{period}.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	period := chi.URLParam(r, "period")

	if err := h.reports.DeleteReport(r.Context(), userID, period); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteReportByID handles DELETE /api/v1/reports/id/{reportId}.
func (h *Handler) DeleteReportByID(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	raw := chi.URLParam(r, "reportId")

	reportID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, r, core.Invalidf("reportId must be a number, got '%s'", raw))
		return
	}
	if err := h.reports.DeleteReportByID(r.Context(), userID, reportID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate handles POST /api/v1/reports/{period}/recalculate. The
// Authorization header is forwarded to the transaction service as-is.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	period := chi.URLParam(r, "period")
	token := r.Header.Get("Authorization")

	report, err := h.recalc.Recalculate(r.Context(), userID, period, token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", log.FieldError, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrReportNotFound):
		status = http.StatusNotFound
	case core.IsIntegration(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err,
		)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
