package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// eventPublisher announces committed rows on the change feed. Publishing
// happens after commit; a failure is logged and subscribers catch up on
// their next refetch.
type eventPublisher struct {
	feed   realtime.Feed
	logger *logger.Logger
}

func (p eventPublisher) publish(ctx context.Context, table string, typ model.ChangeType, row any) {
	if p.feed == nil {
		return
	}

	ev, err := realtime.NewEvent(table, typ, row)
	if err != nil {
		p.logger.Error("failed to build change event", zap.String("table", table), zap.Error(err))
		return
	}
	if err := p.feed.Publish(ctx, ev); err != nil {
		p.logger.Warn("failed to publish change event",
			zap.String("table", table),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}
