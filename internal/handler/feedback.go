package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// FeedbackService is the feedback surface used by FeedbackHandler.
type FeedbackService interface {
	List(ctx context.Context, filter model.FeedbackFilter) (*model.ListResponse[model.Feedback], error)
	Get(ctx context.Context, id string) (*model.Feedback, error)
	Reply(ctx context.Context, session *model.Session, id, reply string) (*model.Feedback, error)
	SetStatus(ctx context.Context, session *model.Session, id string, status model.FeedbackStatus) (*model.Feedback, error)
}

// FeedbackHandler handles feedback endpoints.
type FeedbackHandler struct {
	service FeedbackService
	logger  *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(svc FeedbackService, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{service: svc, logger: log}
}

// List handles GET /api/v1/feedback
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.FeedbackFilter{
		Status: model.FeedbackStatus(q.Get("status")),
		SiteID: q.Get("site_id"),
		Page:   parsePage(r),
	}
	if v := q.Get("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "must be a number", Field: "rating"})
			return
		}
		filter.Rating = rating
	}

	resp, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/feedback/{id}
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	fb, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// Reply handles POST /api/v1/feedback/{id}/reply
func (h *FeedbackHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req model.ReplyFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fb, err := h.service.Reply(r.Context(), session(r), chi.URLParam(r, "id"), req.Reply)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// SetStatus handles PUT /api/v1/feedback/{id}/status
func (h *FeedbackHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req model.FeedbackStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fb, err := h.service.SetStatus(r.Context(), session(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}
