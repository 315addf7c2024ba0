package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// DefaultQRSize is the ticket QR edge length in pixels.
const DefaultQRSize = 256

// bookingTransitions lists the statuses each target status may be reached from.
var bookingTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingConfirmed: {model.BookingPending},
	model.BookingRejected:  {model.BookingPending},
	model.BookingCancelled: {model.BookingPending, model.BookingConfirmed},
	model.BookingCompleted: {model.BookingConfirmed},
}

var bookingPushTitles = map[model.BookingStatus]string{
	model.BookingConfirmed: "Your booking is confirmed",
	model.BookingRejected:  "Your booking was declined",
	model.BookingCancelled: "Your booking was cancelled",
	model.BookingCompleted: "Thanks for visiting",
}

// BookingService handles booking review by staff.
type BookingService struct {
	bookings store.BookingStore
	users    store.UserStore
	sender   notify.Sender
	events   eventPublisher
	logger   *logger.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(bookings store.BookingStore, users store.UserStore, sender notify.Sender, feed realtime.Feed, log *logger.Logger) *BookingService {
	log = log.Named("bookings")
	return &BookingService{
		bookings: bookings,
		users:    users,
		sender:   sender,
		events:   eventPublisher{feed: feed, logger: log},
		logger:   log,
	}
}

// List returns a page of bookings.
func (s *BookingService) List(ctx context.Context, filter model.BookingFilter) (*model.ListResponse[model.Booking], error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, invalid("to", "must not be before from")
	}
	filter.Page = filter.Page.Normalize()

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	return model.NewListResponse(bookings, total, filter.Page), nil
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading booking", err)
	}
	return booking, nil
}

// Confirm accepts a pending booking.
func (s *BookingService) Confirm(ctx context.Context, session *model.Session, id string) (*model.Booking, error) {
	return s.transition(ctx, session, id, model.BookingConfirmed, nil)
}

// Reject declines a pending booking. A reason is required.
func (s *BookingService) Reject(ctx context.Context, session *model.Session, id, reason string) (*model.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}
	return s.transition(ctx, session, id, model.BookingRejected, &reason)
}

// Cancel cancels a pending or confirmed booking.
func (s *BookingService) Cancel(ctx context.Context, session *model.Session, id string) (*model.Booking, error) {
	return s.transition(ctx, session, id, model.BookingCancelled, nil)
}

// Complete marks a confirmed booking as visited.
func (s *BookingService) Complete(ctx context.Context, session *model.Session, id string) (*model.Booking, error) {
	return s.transition(ctx, session, id, model.BookingCompleted, nil)
}

// TicketQR renders the booking reference as a PNG QR code.
func (s *BookingService) TicketQR(ctx context.Context, id string, size int) ([]byte, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading booking", err)
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	png, err := qrcode.Encode(booking.Reference, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding ticket qr: %w", err)
	}
	return png, nil
}

func (s *BookingService) transition(ctx context.Context, session *model.Session, id string, to model.BookingStatus, reason *string) (*model.Booking, error) {
	from := bookingTransitions[to]

	current, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading booking", err)
	}
	if !slices.Contains(from, current.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, from, to, session.StaffID, reason)
	if errors.Is(err, store.ErrNotFound) {
		// Changed underneath us between the read and the update.
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
	}
	if err != nil {
		return nil, fmt.Errorf("updating booking: %w", err)
	}

	s.logger.Info("booking status changed",
		zap.String("booking_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("staff_id", session.StaffID),
	)

	s.events.publish(ctx, model.TableBookings, model.ChangeUpdate, updated)
	s.notifyCustomer(ctx, updated)
	return updated, nil
}

// notifyCustomer pushes the status change to the customer's device. A
// missing token or failed delivery only produces a warning.
func (s *BookingService) notifyCustomer(ctx context.Context, booking *model.Booking) {
	if s.sender == nil {
		return
	}

	user, err := s.users.Get(ctx, booking.UserID)
	if err != nil {
		s.logger.Warn("booking customer not loaded", zap.String("booking_id", booking.ID), zap.Error(err))
		return
	}
	if user.PushToken == nil || *user.PushToken == "" {
		s.logger.Warn("customer has no device token", zap.String("user_id", user.ID))
		return
	}

	body := fmt.Sprintf("Booking %s on %s", booking.Reference, booking.VisitDate.Format("2 Jan 2006"))
	if booking.RejectionReason != nil && booking.Status == model.BookingRejected {
		body += ": " + *booking.RejectionReason
	}

	res := s.sender.SendPush(ctx, notify.PushMessage{
		Token: *user.PushToken,
		Title: bookingPushTitles[booking.Status],
		Body:  body,
		Data: map[string]any{
			"type":       "booking_status",
			"booking_id": booking.ID,
			"status":     string(booking.Status),
		},
	})
	if !res.Success {
		s.logger.Warn("booking push not delivered", zap.String("booking_id", booking.ID), zap.String("error", res.Error))
	}
}
