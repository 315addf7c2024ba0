package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/coalesce"
	"github.com/heritage-trails/admin-api/internal/middleware"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error to a status code. Unexpected
// errors are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, service.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "content"})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountDisabled), errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, coalesce.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer request")
	case errors.Is(err, service.ErrTranslationUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		middleware.RequestLogger(r.Context(), log).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parsePage reads limit and offset query parameters.
func parsePage(r *http.Request) model.Page {
	q := r.URL.Query()
	page := model.Page{}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		page.Limit = l
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil {
		page.Offset = o
	}
	return page.Normalize()
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

// parseTimeParam parses an optional query parameter. ok is false when the
// value was present but malformed, in which case a 400 has been written.
func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (t *time.Time, ok bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, true
	}
	parsed, err := parseTime(value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid date", Field: name})
		return nil, false
	}
	return &parsed, true
}

// session returns the authenticated staff session.
func session(r *http.Request) *model.Session {
	return middleware.GetSession(r.Context())
}
