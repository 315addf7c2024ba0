package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const conversationColumns = `c.id, c.user_id, COALESCE(u.full_name, ''), c.assigned_staff_id, c.status,
	c.unread_count_user, c.unread_count_staff, c.last_message_text, c.last_message_at,
	c.created_at, c.updated_at`

const conversationFrom = ` FROM conversations c LEFT JOIN users u ON u.id = c.user_id`

type conversationStore struct {
	db DBTX
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(
		&c.ID, &c.UserID, &c.UserName, &c.AssignedStaffID, &c.Status,
		&c.UnreadCountUser, &c.UnreadCountStaff, &c.LastMessageText, &c.LastMessageAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *conversationStore) ListActive(ctx context.Context) ([]model.Conversation, error) {
	rows, err := s.db.Query(ctx, `SELECT `+conversationColumns+conversationFrom+`
		WHERE c.status = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.id`, model.ConversationActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *conversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	return scanConversation(s.db.QueryRow(ctx, `SELECT `+conversationColumns+conversationFrom+` WHERE c.id = $1`, id))
}

// update runs an UPDATE ... RETURNING id and reloads the joined row.
func (s *conversationStore) update(ctx context.Context, query string, args ...any) (*model.Conversation, error) {
	var id string
	if err := s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, notFound(err)
	}
	return s.Get(ctx, id)
}

func (s *conversationStore) Assign(ctx context.Context, id, staffID string) (*model.Conversation, error) {
	return s.update(ctx, `UPDATE conversations SET assigned_staff_id = $2, updated_at = now()
		WHERE id = $1 RETURNING id`, id, staffID)
}

func (s *conversationStore) Close(ctx context.Context, id string) (*model.Conversation, error) {
	return s.update(ctx, `UPDATE conversations SET status = $2, updated_at = now()
		WHERE id = $1 RETURNING id`, id, model.ConversationClosed)
}

func (s *conversationStore) RecordStaffMessage(ctx context.Context, id, text string, at time.Time) (*model.Conversation, error) {
	return s.update(ctx, `UPDATE conversations
		SET last_message_text = $2, last_message_at = $3,
			unread_count_user = unread_count_user + 1, updated_at = now()
		WHERE id = $1 RETURNING id`, id, text, at)
}

func (s *conversationStore) DecrementStaffUnread(ctx context.Context, id string, n int64) (*model.Conversation, error) {
	return s.update(ctx, `UPDATE conversations
		SET unread_count_staff = GREATEST(unread_count_staff - $2, 0), updated_at = now()
		WHERE id = $1 RETURNING id`, id, n)
}
