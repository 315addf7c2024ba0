package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// CallRequestService is the call-back surface used by CallRequestHandler.
type CallRequestService interface {
	List(ctx context.Context, filter model.CallRequestFilter) (*model.ListResponse[model.CallRequest], error)
	Get(ctx context.Context, id string) (*model.CallRequest, error)
	Assign(ctx context.Context, session *model.Session, id string) (*model.CallRequest, error)
	Resolve(ctx context.Context, session *model.Session, id, notes string) (*model.CallRequest, error)
}

// CallRequestHandler handles call support request endpoints.
type CallRequestHandler struct {
	service CallRequestService
	logger  *logger.Logger
}

// NewCallRequestHandler creates a new call request handler.
func NewCallRequestHandler(svc CallRequestService, log *logger.Logger) *CallRequestHandler {
	return &CallRequestHandler{service: svc, logger: log}
}

// List handles GET /api/v1/call-requests
func (h *CallRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context(), model.CallRequestFilter{
		Status: model.CallRequestStatus(r.URL.Query().Get("status")),
		Page:   parsePage(r),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/call-requests/{id}
func (h *CallRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	cr, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

// Assign handles POST /api/v1/call-requests/{id}/assign
func (h *CallRequestHandler) Assign(w http.ResponseWriter, r *http.Request) {
	cr, err := h.service.Assign(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

// Resolve handles POST /api/v1/call-requests/{id}/resolve
func (h *CallRequestHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req model.ResolveCallRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cr, err := h.service.Resolve(r.Context(), session(r), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}
