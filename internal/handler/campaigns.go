package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// MarketingService is the campaign surface used by CampaignHandler.
type MarketingService interface {
	List(ctx context.Context, page model.Page) (*model.ListResponse[model.Campaign], error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	Create(ctx context.Context, session *model.Session, req model.CampaignRequest) (*model.Campaign, error)
	Update(ctx context.Context, session *model.Session, id string, req model.CampaignRequest) (*model.Campaign, error)
	Delete(ctx context.Context, session *model.Session, id string) error
	Send(ctx context.Context, session *model.Session, id string) (*model.CampaignSendResult, error)
}

// CampaignHandler handles marketing campaign endpoints.
type CampaignHandler struct {
	service MarketingService
	logger  *logger.Logger
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(svc MarketingService, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{service: svc, logger: log}
}

// List handles GET /api/v1/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context(), parsePage(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create handles POST /api/v1/campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), session(r), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/v1/campaigns/{id}
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.CampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/campaigns/{id}
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/campaigns/{id}/send
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Send(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
