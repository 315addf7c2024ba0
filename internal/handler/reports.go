package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ReportService is the reporting surface used by ReportHandler.
type ReportService interface {
	BookingSummary(ctx context.Context, r model.DateRange) (*model.Report, error)
	RevenueBySite(ctx context.Context, r model.DateRange) (*model.Report, error)
	FeedbackByRating(ctx context.Context, r model.DateRange) (*model.Report, error)
	CampaignPerformance(ctx context.Context) (*model.Report, error)
	ExportXLSX(report *model.Report) ([]byte, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles report endpoints.
type ReportHandler struct {
	service ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{service: svc, logger: log}
}

// Get handles GET /api/v1/reports/{name}
// Supports ?from=&to= (RFC 3339 or YYYY-MM-DD) and ?format=xlsx.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}
	var dr model.DateRange
	if from != nil {
		dr.From = *from
	}
	if to != nil {
		dr.To = *to
	}

	name := chi.URLParam(r, "name")
	var (
		report *model.Report
		err    error
	)
	switch name {
	case "bookings":
		report, err = h.service.BookingSummary(r.Context(), dr)
	case "revenue":
		report, err = h.service.RevenueBySite(r.Context(), dr)
	case "feedback":
		report, err = h.service.FeedbackByRating(r.Context(), dr)
	case "campaigns":
		report, err = h.service.CampaignPerformance(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown report")
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	case "xlsx":
		data, err := h.service.ExportXLSX(report)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		filename := fmt.Sprintf("%s-%s.xlsx", name, report.GeneratedAt.Format("20060102"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "must be json or xlsx", Field: "format"})
	}
}
