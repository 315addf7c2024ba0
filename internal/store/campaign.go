package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const campaignColumns = `id, name, channel, audience, language, title, body, html, data, status,
	scheduled_at, sent_at, sent_count, failed_count, created_by, created_at, updated_at`

type campaignStore struct {
	db DBTX
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Channel, &c.Audience, &c.Language, &c.Title, &c.Body, &c.HTML, &c.Data, &c.Status,
		&c.ScheduledAt, &c.SentAt, &c.SentCount, &c.FailedCount, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func collectCampaigns(rows pgx.Rows) ([]model.Campaign, error) {
	defer rows.Close()
	out := []model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *campaignStore) List(ctx context.Context, page model.Page) ([]model.Campaign, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	rows, err := s.db.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectCampaigns(rows)
	return items, total, err
}

func (s *campaignStore) All(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

func (s *campaignStore) Get(ctx context.Context, id string) (*model.Campaign, error) {
	return scanCampaign(s.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
}

func (s *campaignStore) Create(ctx context.Context, c *model.Campaign) error {
	row := s.db.QueryRow(ctx, `INSERT INTO campaigns
			(name, channel, audience, language, title, body, html, data, status, scheduled_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+campaignColumns,
		c.Name, c.Channel, c.Audience, c.Language, c.Title, c.Body, c.HTML, c.Data, c.Status, c.ScheduledAt, c.CreatedBy)
	created, err := scanCampaign(row)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

func (s *campaignStore) Update(ctx context.Context, c *model.Campaign) error {
	row := s.db.QueryRow(ctx, `UPDATE campaigns
		SET name = $2, channel = $3, audience = $4, language = $5, title = $6, body = $7,
			html = $8, data = $9, status = $10, scheduled_at = $11, updated_at = now()
		WHERE id = $1
		RETURNING `+campaignColumns,
		c.ID, c.Name, c.Channel, c.Audience, c.Language, c.Title, c.Body, c.HTML, c.Data, c.Status, c.ScheduledAt)
	updated, err := scanCampaign(row)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

func (s *campaignStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1 AND status IN ($2, $3)`,
		id, model.CampaignDraft, model.CampaignScheduled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *campaignStore) MarkSending(ctx context.Context, id string) (*model.Campaign, error) {
	return scanCampaign(s.db.QueryRow(ctx, `UPDATE campaigns SET status = $2, updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING `+campaignColumns, id, model.CampaignSending, model.CampaignDraft, model.CampaignScheduled))
}

func (s *campaignStore) ReleaseSending(ctx context.Context, id string, status model.CampaignStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE campaigns SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`, id, status, model.CampaignSending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *campaignStore) MarkSent(ctx context.Context, id string, sent, failed int) (*model.Campaign, error) {
	return scanCampaign(s.db.QueryRow(ctx, `UPDATE campaigns
		SET status = $2, sent_at = now(), sent_count = $3, failed_count = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+campaignColumns, id, model.CampaignSent, sent, failed))
}
