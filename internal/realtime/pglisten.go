package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// PGListener republishes Postgres NOTIFY payloads onto a Feed. The platform's
// row triggers notify with {"table","type","record","old"}; this covers rows
// written by other clients such as the mobile app.
type PGListener struct {
	pool    *pgxpool.Pool
	channel string
	feed    Feed
	logger  *logger.Logger
}

// NewPGListener creates a listener for channel.
func NewPGListener(pool *pgxpool.Pool, channel string, feed Feed, log *logger.Logger) *PGListener {
	return &PGListener{
		pool:    pool,
		channel: channel,
		feed:    feed,
		logger:  log.Named("pglisten"),
	}
}

// Run listens until ctx is cancelled. A lost connection is re-established
// after a short pause; notifications sent while disconnected are lost.
func (l *PGListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("postgres listener disconnected", zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.logger.Info("listening for row changes", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev, err := ParseNotification(n.Payload)
		if err != nil {
			l.logger.Warn("dropping malformed notification", zap.Error(err))
			continue
		}
		if err := l.feed.Publish(ctx, ev); err != nil {
			l.logger.Error("failed to republish change", zap.String("table", ev.Table), zap.Error(err))
		}
	}
}

type notification struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
	Old    json.RawMessage `json:"old"`
	At     *time.Time      `json:"commit_time"`
}

// ParseNotification decodes a trigger payload into a change event.
func ParseNotification(payload string) (model.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return model.ChangeEvent{}, fmt.Errorf("invalid payload: %w", err)
	}
	if n.Table == "" {
		return model.ChangeEvent{}, errors.New("payload has no table")
	}

	typ := model.ChangeType(n.Type)
	switch typ {
	case model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete:
	default:
		// Trigger helpers commonly send TG_OP verbatim.
		switch n.Type {
		case "INSERT":
			typ = model.ChangeInsert
		case "UPDATE":
			typ = model.ChangeUpdate
		case "DELETE":
			typ = model.ChangeDelete
		default:
			return model.ChangeEvent{}, fmt.Errorf("unknown change type %q", n.Type)
		}
	}

	ev := model.ChangeEvent{
		Table:  n.Table,
		Type:   typ,
		Record: n.Record,
		Old:    n.Old,
	}
	if n.At != nil {
		ev.CommitTime = *n.At
	}
	return ev, nil
}
