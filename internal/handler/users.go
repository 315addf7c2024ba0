package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// UserService is the user management surface used by UserHandler.
type UserService interface {
	List(ctx context.Context, filter model.UserFilter) (*model.ListResponse[model.User], error)
	Get(ctx context.Context, id string) (*model.User, error)
	CreateStaff(ctx context.Context, session *model.Session, req model.CreateStaffRequest) (*model.User, error)
	Update(ctx context.Context, session *model.Session, id string, req model.UpdateUserRequest) (*model.User, error)
	ResetPassword(ctx context.Context, session *model.Session, id string, req model.ResetPasswordRequest) error
}

// UserHandler handles user endpoints.
type UserHandler struct {
	service UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: log}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.UserFilter{
		Role:   model.UserRole(q.Get("role")),
		Search: q.Get("search"),
		Page:   parsePage(r),
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "must be true or false", Field: "active"})
			return
		}
		filter.Active = &active
	}

	resp, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.CreateStaff(r.Context(), session(r), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Update handles PATCH /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/v1/users/{id}/password
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), session(r), chi.URLParam(r, "id"), req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
