package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// MasterDataService is the reference data surface used by MasterDataHandler.
type MasterDataService interface {
	List(ctx context.Context, kind string, includeInactive bool) ([]model.MasterData, error)
	Get(ctx context.Context, id string) (*model.MasterData, error)
	Create(ctx context.Context, session *model.Session, req model.MasterDataRequest) (*model.MasterData, error)
	Update(ctx context.Context, session *model.Session, id string, req model.MasterDataRequest) (*model.MasterData, error)
	Deactivate(ctx context.Context, session *model.Session, id string) error
	UpsertTranslation(ctx context.Context, session *model.Session, id string, req model.TranslationRequest) (*model.Translation, error)
	AutoTranslate(ctx context.Context, session *model.Session, id string, req model.AutoTranslateRequest) (*model.Translation, error)
}

// MasterDataHandler handles master data endpoints.
type MasterDataHandler struct {
	service MasterDataService
	logger  *logger.Logger
}

// NewMasterDataHandler creates a new master data handler.
func NewMasterDataHandler(svc MasterDataService, log *logger.Logger) *MasterDataHandler {
	return &MasterDataHandler{service: svc, logger: log}
}

// List handles GET /api/v1/master-data?kind=&include_inactive=
func (h *MasterDataHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeInactive, _ := strconv.ParseBool(q.Get("include_inactive"))

	items, err := h.service.List(r.Context(), q.Get("kind"), includeInactive)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Get handles GET /api/v1/master-data/{id}
func (h *MasterDataHandler) Get(w http.ResponseWriter, r *http.Request) {
	md, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// Create handles POST /api/v1/master-data
func (h *MasterDataHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.MasterDataRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	md, err := h.service.Create(r.Context(), session(r), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, md)
}

// Update handles PUT /api/v1/master-data/{id}
func (h *MasterDataHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.MasterDataRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	md, err := h.service.Update(r.Context(), session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// Deactivate handles DELETE /api/v1/master-data/{id}
func (h *MasterDataHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertTranslation handles PUT /api/v1/master-data/{id}/translations
func (h *MasterDataHandler) UpsertTranslation(w http.ResponseWriter, r *http.Request) {
	var req model.TranslationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.UpsertTranslation(r.Context(), session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// AutoTranslate handles POST /api/v1/master-data/{id}/auto-translate
func (h *MasterDataHandler) AutoTranslate(w http.ResponseWriter, r *http.Request) {
	var req model.AutoTranslateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.AutoTranslate(r.Context(), session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
