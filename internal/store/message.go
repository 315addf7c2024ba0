package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const messageColumns = `id, conversation_id, sender_id, sender_role, content, attachment_url,
	is_read, read_at, created_at`

type messageStore struct {
	db DBTX
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.SenderRole, &m.Content, &m.AttachmentURL,
		&m.IsRead, &m.ReadAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *messageStore) ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	rows, err := s.db.Query(ctx, `SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = $1 AND NOT is_deleted
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Insert clamps created_at to the newest existing message so the thread
// order stays monotonic even under clock skew between writers.
func (s *messageStore) Insert(ctx context.Context, msg *model.Message) error {
	row := s.db.QueryRow(ctx, `INSERT INTO messages
			(conversation_id, sender_id, sender_role, content, attachment_url, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, GREATEST(now(),
			COALESCE((SELECT max(created_at) FROM messages WHERE conversation_id = $1), now())))
		RETURNING `+messageColumns,
		msg.ConversationID, msg.SenderID, msg.SenderRole, msg.Content, msg.AttachmentURL)

	stored, err := scanMessage(row)
	if err != nil {
		return err
	}
	*msg = *stored
	return nil
}

func (s *messageStore) MarkReadFrom(ctx context.Context, conversationID string, role model.SenderRole) (int64, error) {
	tag, err := s.db.Exec(ctx, `UPDATE messages SET is_read = true, read_at = now()
		WHERE conversation_id = $1 AND sender_role = $2 AND NOT is_read`, conversationID, role)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *messageStore) CountUnreadFrom(ctx context.Context, conversationID string, role model.SenderRole) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM messages
		WHERE conversation_id = $1 AND sender_role = $2 AND NOT is_read AND NOT is_deleted`,
		conversationID, role).Scan(&n)
	return n, err
}
