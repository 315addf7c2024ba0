package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const feedbackColumns = `f.id, f.user_id, COALESCE(u.full_name, ''), f.booking_id, f.site_id, COALESCE(md.name, ''),
	f.rating, f.comment, f.status, f.reply, f.replied_by, f.replied_at, f.created_at`

const feedbackFrom = ` FROM feedback f
	LEFT JOIN users u ON u.id = f.user_id
	LEFT JOIN master_data md ON md.id = f.site_id`

type feedbackStore struct {
	db DBTX
}

func scanFeedback(row pgx.Row) (*model.Feedback, error) {
	var f model.Feedback
	err := row.Scan(
		&f.ID, &f.UserID, &f.UserName, &f.BookingID, &f.SiteID, &f.SiteName,
		&f.Rating, &f.Comment, &f.Status, &f.Reply, &f.RepliedBy, &f.RepliedAt, &f.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func collectFeedback(rows pgx.Rows) ([]model.Feedback, error) {
	defer rows.Close()
	out := []model.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *feedbackStore) List(ctx context.Context, filter model.FeedbackFilter) ([]model.Feedback, int, error) {
	var w where
	if filter.Rating > 0 {
		w.add("f.rating = ?", filter.Rating)
	}
	if filter.Status != "" {
		w.add("f.status = ?", filter.Status)
	}
	if filter.SiteID != "" {
		w.add("f.site_id = ?", filter.SiteID)
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*)`+feedbackFrom+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	cond := w.String()
	limit := w.page(page.Limit, page.Offset)
	rows, err := s.db.Query(ctx, `SELECT `+feedbackColumns+feedbackFrom+cond+` ORDER BY f.created_at DESC, f.id`+limit, w.args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectFeedback(rows)
	return items, total, err
}

func (s *feedbackStore) Get(ctx context.Context, id string) (*model.Feedback, error) {
	return scanFeedback(s.db.QueryRow(ctx, `SELECT `+feedbackColumns+feedbackFrom+` WHERE f.id = $1`, id))
}

func (s *feedbackStore) Reply(ctx context.Context, id, staffID, reply string) (*model.Feedback, error) {
	tag, err := s.db.Exec(ctx, `UPDATE feedback
		SET reply = $2, replied_by = $3, replied_at = now(), status = $4
		WHERE id = $1`, id, reply, staffID, model.FeedbackReplied)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *feedbackStore) SetStatus(ctx context.Context, id string, status model.FeedbackStatus) (*model.Feedback, error) {
	tag, err := s.db.Exec(ctx, `UPDATE feedback SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *feedbackStore) InRange(ctx context.Context, r model.DateRange) ([]model.Feedback, error) {
	var w where
	if !r.From.IsZero() {
		w.add("f.created_at >= ?", r.From)
	}
	if !r.To.IsZero() {
		w.add("f.created_at < ?", r.To)
	}
	rows, err := s.db.Query(ctx, `SELECT `+feedbackColumns+feedbackFrom+w.String()+` ORDER BY f.created_at`, w.args...)
	if err != nil {
		return nil, err
	}
	return collectFeedback(rows)
}
