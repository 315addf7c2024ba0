package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const bookingColumns = `b.id, b.reference, b.user_id, COALESCE(u.full_name, ''), b.module, b.site_id,
	COALESCE(md.name, ''), b.visit_date, b.guests, b.total_amount, b.currency, b.status,
	b.rejection_reason, b.handled_by, b.created_at, b.updated_at`

const bookingFrom = ` FROM bookings b
	LEFT JOIN users u ON u.id = b.user_id
	LEFT JOIN master_data md ON md.id = b.site_id`

type bookingStore struct {
	db DBTX
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID, &b.Reference, &b.UserID, &b.CustomerName, &b.Module, &b.SiteID,
		&b.SiteName, &b.VisitDate, &b.Guests, &b.TotalAmount, &b.Currency, &b.Status,
		&b.RejectionReason, &b.HandledBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *bookingStore) List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	var w where
	if filter.Status != "" {
		w.add("b.status = ?", filter.Status)
	}
	if filter.Module != "" {
		w.add("b.module = ?", filter.Module)
	}
	if filter.SiteID != "" {
		w.add("b.site_id = ?", filter.SiteID)
	}
	if filter.From != nil {
		w.add("b.visit_date >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("b.visit_date < ?", *filter.To)
	}
	if filter.Search != "" {
		w.add("(b.reference ILIKE ? OR u.full_name ILIKE ?)", like(filter.Search), like(filter.Search))
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*)`+bookingFrom+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	cond := w.String()
	limit := w.page(page.Limit, page.Offset)
	rows, err := s.db.Query(ctx, `SELECT `+bookingColumns+bookingFrom+cond+` ORDER BY b.visit_date DESC, b.id`+limit, w.args...)
	if err != nil {
		return nil, 0, err
	}
	bookings, err := collectBookings(rows)
	return bookings, total, err
}

func (s *bookingStore) Get(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(s.db.QueryRow(ctx, `SELECT `+bookingColumns+bookingFrom+` WHERE b.id = $1`, id))
}

func (s *bookingStore) UpdateStatus(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, staffID string, reason *string) (*model.Booking, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	var updatedID string
	err := s.db.QueryRow(ctx, `UPDATE bookings
		SET status = $2, handled_by = $3, rejection_reason = COALESCE($4, rejection_reason), updated_at = now()
		WHERE id = $1 AND status = ANY($5)
		RETURNING id`, id, to, staffID, reason, allowed).Scan(&updatedID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.Get(ctx, updatedID)
}

func (s *bookingStore) InRange(ctx context.Context, r model.DateRange) ([]model.Booking, error) {
	var w where
	if !r.From.IsZero() {
		w.add("b.visit_date >= ?", r.From)
	}
	if !r.To.IsZero() {
		w.add("b.visit_date < ?", r.To)
	}
	rows, err := s.db.Query(ctx, `SELECT `+bookingColumns+bookingFrom+w.String()+` ORDER BY b.visit_date`, w.args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}
