// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/heritage-trails/admin-api/internal/model"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SessionKey is the context key for the staff session.
	SessionKey ContextKey = "session"
)

// Authenticator resolves a bearer token to a live staff session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// Auth creates bearer token authentication middleware. The token must map
// to a session that has not been logged out or expired.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			ctx := WithSession(r.Context(), session)
			if info := requestInfoFrom(ctx); info != nil {
				info.staffID = session.StaffID
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects sessions that do not belong to an administrator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetSession(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession stores session in ctx.
func WithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSession gets the staff session from context.
func GetSession(ctx context.Context) *model.Session {
	if v, ok := ctx.Value(SessionKey).(*model.Session); ok {
		return v
	}
	return nil
}

// GetStaffID gets the authenticated staff id from context.
func GetStaffID(ctx context.Context) string {
	if s := GetSession(ctx); s != nil {
		return s.StaffID
	}
	return ""
}

// bearerToken reads the Authorization header. Browsers cannot set headers
// on EventSource or WebSocket requests, so an access_token query parameter
// is accepted as a fallback.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return r.URL.Query().Get("access_token")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
