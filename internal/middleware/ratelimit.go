package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit allows requestLimit requests per window for each staff member.
// Requests without a session fall back to the client IP.
func RateLimit(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requestLimit, window,
		httprate.WithKeyFuncs(staffOrIP),
		httprate.WithLimitHandler(limited(window, "rate limit exceeded")),
	)
}

// LoginRateLimit throttles login attempts per client IP.
func LoginRateLimit(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requestLimit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limited(window, "too many login attempts")),
	)
}

func staffOrIP(r *http.Request) (string, error) {
	if staffID := GetStaffID(r.Context()); staffID != "" {
		return "staff:" + staffID, nil
	}
	return httprate.KeyByIP(r)
}

func limited(window time.Duration, message string) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		writeError(w, http.StatusTooManyRequests, message)
	}
}
