package store

import (
	"context"
	"errors"
	"time"

	"github.com/heritage-trails/admin-api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// ConversationStore defines access to the conversations table.
type ConversationStore interface {
	ListActive(ctx context.Context) ([]model.Conversation, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Assign(ctx context.Context, id, staffID string) (*model.Conversation, error)
	Close(ctx context.Context, id string) (*model.Conversation, error)
	// RecordStaffMessage moves the last-message snapshot and bumps the
	// end user's unread counter.
	RecordStaffMessage(ctx context.Context, id, text string, at time.Time) (*model.Conversation, error)
	// DecrementStaffUnread lowers the staff unread counter by n, floor 0.
	DecrementStaffUnread(ctx context.Context, id string, n int64) (*model.Conversation, error)
}

// MessageStore defines access to the messages table.
type MessageStore interface {
	// ListRecent returns the newest limit non-deleted messages, oldest first.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	// Insert stores msg; the database assigns id and created_at.
	Insert(ctx context.Context, msg *model.Message) error
	// MarkReadFrom flips unread messages authored by role and returns the count.
	MarkReadFrom(ctx context.Context, conversationID string, role model.SenderRole) (int64, error)
	CountUnreadFrom(ctx context.Context, conversationID string, role model.SenderRole) (int64, error)
}

// UserStore defines access to the users table.
type UserStore interface {
	List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	// Audience returns active customers for a campaign audience.
	Audience(ctx context.Context, audience model.Audience, language string) ([]model.User, error)
}

// BookingStore defines access to the bookings table.
type BookingStore interface {
	List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	// UpdateStatus moves the booking to status if it is currently in one of from.
	UpdateStatus(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, staffID string, reason *string) (*model.Booking, error)
	InRange(ctx context.Context, r model.DateRange) ([]model.Booking, error)
}

// FeedbackStore defines access to the feedback table.
type FeedbackStore interface {
	List(ctx context.Context, filter model.FeedbackFilter) ([]model.Feedback, int, error)
	Get(ctx context.Context, id string) (*model.Feedback, error)
	Reply(ctx context.Context, id, staffID, reply string) (*model.Feedback, error)
	SetStatus(ctx context.Context, id string, status model.FeedbackStatus) (*model.Feedback, error)
	InRange(ctx context.Context, r model.DateRange) ([]model.Feedback, error)
}

// CampaignStore defines access to the campaigns table.
type CampaignStore interface {
	List(ctx context.Context, page model.Page) ([]model.Campaign, int, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	Create(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, c *model.Campaign) error
	Delete(ctx context.Context, id string) error
	// MarkSending claims a draft or scheduled campaign for sending.
	MarkSending(ctx context.Context, id string) (*model.Campaign, error)
	// ReleaseSending returns a claimed campaign to status when nothing was
	// delivered.
	ReleaseSending(ctx context.Context, id string, status model.CampaignStatus) error
	MarkSent(ctx context.Context, id string, sent, failed int) (*model.Campaign, error)
	All(ctx context.Context) ([]model.Campaign, error)
}

// CallRequestStore defines access to the call_support_requests table.
type CallRequestStore interface {
	List(ctx context.Context, filter model.CallRequestFilter) ([]model.CallRequest, int, error)
	Get(ctx context.Context, id string) (*model.CallRequest, error)
	Assign(ctx context.Context, id, staffID string) (*model.CallRequest, error)
	Resolve(ctx context.Context, id, notes string) (*model.CallRequest, error)
}

// MasterDataStore defines access to master data and its translations.
type MasterDataStore interface {
	List(ctx context.Context, kind string, includeInactive bool) ([]model.MasterData, error)
	Get(ctx context.Context, id string) (*model.MasterData, error)
	Create(ctx context.Context, md *model.MasterData) error
	Update(ctx context.Context, md *model.MasterData) error
	Deactivate(ctx context.Context, id string) error
	Translations(ctx context.Context, ids []string) ([]model.Translation, error)
	UpsertTranslation(ctx context.Context, t *model.Translation) error
}
