// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"net/http"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// AuthService is the authentication surface used by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Logout(ctx context.Context, session *model.Session) error
	ChangePassword(ctx context.Context, session *model.Session, req model.ChangePasswordRequest) error
}

// AuthHandler handles login and session endpoints.
type AuthHandler struct {
	auth   AuthService
	users  UserService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth AuthService, users UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, logger: log}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), session(r)); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), session(r).StaffID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req model.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), session(r), req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
