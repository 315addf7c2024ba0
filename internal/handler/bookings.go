package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

const maxTicketSize = 1024

// BookingService is the booking surface used by BookingHandler.
type BookingService interface {
	List(ctx context.Context, filter model.BookingFilter) (*model.ListResponse[model.Booking], error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	Confirm(ctx context.Context, session *model.Session, id string) (*model.Booking, error)
	Reject(ctx context.Context, session *model.Session, id, reason string) (*model.Booking, error)
	Cancel(ctx context.Context, session *model.Session, id string) (*model.Booking, error)
	Complete(ctx context.Context, session *model.Session, id string) (*model.Booking, error)
	TicketQR(ctx context.Context, id string, size int) ([]byte, error)
}

// BookingHandler handles booking endpoints.
type BookingHandler struct {
	service BookingService
	logger  *logger.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(svc BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{service: svc, logger: log}
}

// List handles GET /api/v1/bookings
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}

	resp, err := h.service.List(r.Context(), model.BookingFilter{
		Status: model.BookingStatus(q.Get("status")),
		Module: q.Get("module"),
		SiteID: q.Get("site_id"),
		From:   from,
		To:     to,
		Search: q.Get("search"),
		Page:   parsePage(r),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/bookings/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Confirm handles POST /api/v1/bookings/{id}/confirm
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Confirm(r.Context(), session(r), chi.URLParam(r, "id")))
}

// Reject handles POST /api/v1/bookings/{id}/reject
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req model.RejectBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.Reject(r.Context(), session(r), chi.URLParam(r, "id"), req.Reason))
}

// Cancel handles POST /api/v1/bookings/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Cancel(r.Context(), session(r), chi.URLParam(r, "id")))
}

// Complete handles POST /api/v1/bookings/{id}/complete
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Complete(r.Context(), session(r), chi.URLParam(r, "id")))
}

// Ticket handles GET /api/v1/bookings/{id}/ticket.png
func (h *BookingHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size > maxTicketSize {
		size = maxTicketSize
	}

	png, err := h.service.TicketQR(r.Context(), chi.URLParam(r, "id"), size)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *BookingHandler) respond(w http.ResponseWriter, r *http.Request) func(*model.Booking, error) {
	return func(booking *model.Booking, err error) {
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}
