package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const callRequestColumns = `r.id, r.user_id, COALESCE(u.full_name, ''), r.phone, r.topic, r.status,
	r.assigned_to, r.notes, r.resolved_at, r.requested_at, r.updated_at`

const callRequestFrom = ` FROM call_support_requests r LEFT JOIN users u ON u.id = r.user_id`

type callRequestStore struct {
	db DBTX
}

func scanCallRequest(row pgx.Row) (*model.CallRequest, error) {
	var r model.CallRequest
	err := row.Scan(
		&r.ID, &r.UserID, &r.UserName, &r.Phone, &r.Topic, &r.Status,
		&r.AssignedTo, &r.Notes, &r.ResolvedAt, &r.RequestedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *callRequestStore) List(ctx context.Context, filter model.CallRequestFilter) ([]model.CallRequest, int, error) {
	var w where
	if filter.Status != "" {
		w.add("r.status = ?", filter.Status)
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*)`+callRequestFrom+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	cond := w.String()
	limit := w.page(page.Limit, page.Offset)
	rows, err := s.db.Query(ctx, `SELECT `+callRequestColumns+callRequestFrom+cond+` ORDER BY r.requested_at DESC, r.id`+limit, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.CallRequest{}
	for rows.Next() {
		r, err := scanCallRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (s *callRequestStore) Get(ctx context.Context, id string) (*model.CallRequest, error) {
	return scanCallRequest(s.db.QueryRow(ctx, `SELECT `+callRequestColumns+callRequestFrom+` WHERE r.id = $1`, id))
}

func (s *callRequestStore) Assign(ctx context.Context, id, staffID string) (*model.CallRequest, error) {
	tag, err := s.db.Exec(ctx, `UPDATE call_support_requests
		SET assigned_to = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status <> $4`, id, staffID, model.CallRequestInProgress, model.CallRequestResolved)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *callRequestStore) Resolve(ctx context.Context, id, notes string) (*model.CallRequest, error) {
	tag, err := s.db.Exec(ctx, `UPDATE call_support_requests
		SET status = $2, notes = $3, resolved_at = now(), updated_at = now()
		WHERE id = $1`, id, model.CallRequestResolved, notes)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}
