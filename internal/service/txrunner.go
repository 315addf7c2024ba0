package service

import (
	"context"

	"github.com/heritage-trails/admin-api/internal/store"
)

// StoreProvider exposes the stores a transactional operation may touch.
type StoreProvider interface {
	Conversations() store.ConversationStore
	Messages() store.MessageStore
	Users() store.UserStore
	Bookings() store.BookingStore
	Feedback() store.FeedbackStore
	Campaigns() store.CampaignStore
	CallRequests() store.CallRequestStore
	MasterData() store.MasterDataStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *store.DB
}

// NewTxRunner builds a TxRunner backed by the database pool.
func NewTxRunner(db *store.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(stores *store.Stores) error {
		return fn(stores)
	})
}
