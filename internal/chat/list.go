// Package chat holds the staff chat panel state: the live conversation list
// and the open message thread, kept current from the change feed.
package chat

import (
	"context"
	"sort"

	"github.com/heritage-trails/admin-api/internal/model"
)

// Backend is the chat service surface the panel depends on.
type Backend interface {
	ListActiveConversations(ctx context.Context) ([]model.Conversation, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	Send(ctx context.Context, session *model.Session, conversationID string, req model.SendMessageRequest) (*model.Message, error)
	MarkRead(ctx context.Context, session *model.Session, conversationID string) (int64, error)
}

// ConversationList is the ordered list of active conversations. It is not
// safe for concurrent use; the Panel owns it from a single goroutine.
type ConversationList struct {
	backend Backend
	items   []model.Conversation
	err     error
}

// NewConversationList creates an empty list.
func NewConversationList(backend Backend) *ConversationList {
	return &ConversationList{backend: backend}
}

// Refresh reloads the list. On failure the previous items stay in place and
// the error is kept until a later refresh succeeds.
func (l *ConversationList) Refresh(ctx context.Context) error {
	items, err := l.backend.ListActiveConversations(ctx)
	if err != nil {
		l.err = err
		return err
	}

	active := items[:0:0]
	for _, c := range items {
		if c.Status != model.ConversationClosed {
			active = append(active, c)
		}
	}
	sortConversations(active)

	l.items = active
	l.err = nil
	return nil
}

// Err returns the last refresh error, or nil after a successful refresh.
func (l *ConversationList) Err() error {
	return l.err
}

// Items returns a copy of the current list.
func (l *ConversationList) Items() []model.Conversation {
	out := make([]model.Conversation, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the conversation with id, if listed.
func (l *ConversationList) Get(id string) (model.Conversation, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return model.Conversation{}, false
}

// Apply folds a conversations change event into the list and reports
// whether the list changed. The event row is authoritative; no fetch is made.
func (l *ConversationList) Apply(ev model.ChangeEvent) bool {
	if ev.Table != model.TableConversations {
		return false
	}

	var row model.Conversation
	if err := ev.Decode(&row); err != nil || row.ID == "" {
		return false
	}

	i := l.index(row.ID)
	if ev.Type == model.ChangeDelete || row.Status == model.ConversationClosed {
		if i < 0 {
			return false
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		return true
	}

	if i >= 0 {
		l.items[i] = row
	} else {
		l.items = append(l.items, row)
	}
	sortConversations(l.items)
	return true
}

// ApplyRead lowers the staff unread badge of a conversation by n, floor 0.
func (l *ConversationList) ApplyRead(conversationID string, n int64) bool {
	i := l.index(conversationID)
	if i < 0 || n <= 0 {
		return false
	}
	c := &l.items[i]
	c.UnreadCountStaff -= int(n)
	if c.UnreadCountStaff < 0 {
		c.UnreadCountStaff = 0
	}
	return true
}

func (l *ConversationList) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// sortConversations orders by last message time descending, conversations
// without messages last, ties broken by id.
func sortConversations(items []model.Conversation) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].LastMessageAt, items[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return items[i].ID < items[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return items[i].ID < items[j].ID
		}
	})
}
