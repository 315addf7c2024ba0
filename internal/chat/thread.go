package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ThreadState is the state of the message thread.
type ThreadState int

const (
	// ThreadIdle means no conversation is selected.
	ThreadIdle ThreadState = iota
	// ThreadLoading means messages are being fetched.
	ThreadLoading
	// ThreadReady means messages are loaded and live events are applied.
	ThreadReady
)

func (s ThreadState) String() string {
	switch s {
	case ThreadLoading:
		return "loading"
	case ThreadReady:
		return "ready"
	default:
		return "idle"
	}
}

// ErrNoConversation is returned when sending without a ready thread.
var ErrNoConversation = errors.New("no conversation selected")

// Thread is the message list of the selected conversation. It is not safe
// for concurrent use; the Panel owns it from a single goroutine.
type Thread struct {
	backend Backend
	feed    realtime.Feed
	session *model.Session
	limit   int
	logger  *logger.Logger

	state          ThreadState
	conversationID string
	messages       []model.Message
	seen           map[string]struct{}
	sub            *realtime.Subscription
	err            error
}

// NewThread creates an idle thread. limit caps how many recent messages a
// selection loads.
func NewThread(backend Backend, feed realtime.Feed, session *model.Session, limit int, log *logger.Logger) *Thread {
	return &Thread{
		backend: backend,
		feed:    feed,
		session: session,
		limit:   limit,
		logger:  log,
	}
}

// State returns the thread state.
func (t *Thread) State() ThreadState { return t.state }

// ConversationID returns the selected conversation, empty when idle.
func (t *Thread) ConversationID() string { return t.conversationID }

// Err returns the error of the last failed load.
func (t *Thread) Err() error { return t.err }

// Messages returns a copy of the loaded messages, oldest first.
func (t *Thread) Messages() []model.Message {
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Subscription returns the live subscription, nil unless ready.
func (t *Thread) Subscription() *realtime.Subscription { return t.sub }

// Select opens a conversation. The previous subscription is torn down
// before anything else. The subscription is opened before the fetch so no
// insert committed in between is missed; duplicates are dropped by id.
// Once loaded the end user's messages are marked read and the number of
// messages flipped is returned.
func (t *Thread) Select(ctx context.Context, conversationID string) (int64, error) {
	t.Close()

	t.state = ThreadLoading
	t.conversationID = conversationID

	sub, err := t.feed.Subscribe(ctx, realtime.Filter{
		Table:  model.TableMessages,
		Types:  []model.ChangeType{model.ChangeInsert},
		Column: "conversation_id",
		Value:  conversationID,
	})
	if err != nil {
		t.fail(fmt.Errorf("subscribing to messages: %w", err))
		return 0, t.err
	}
	t.sub = sub

	if err := t.load(ctx); err != nil {
		t.fail(err)
		return 0, err
	}
	t.state = ThreadReady

	return t.markRead(ctx), nil
}

// Reload refetches the thread, replacing the loaded messages. It is used
// after the subscription overflowed.
func (t *Thread) Reload(ctx context.Context) error {
	if t.state != ThreadReady {
		return nil
	}
	if err := t.load(ctx); err != nil {
		t.err = err
		return err
	}
	return nil
}

// Apply appends an inserted message of the open conversation, ignoring
// ids already present. It reports whether the thread changed.
func (t *Thread) Apply(ev model.ChangeEvent) (model.Message, bool) {
	if t.state != ThreadReady || ev.Table != model.TableMessages || ev.Type != model.ChangeInsert {
		return model.Message{}, false
	}

	var msg model.Message
	if err := ev.Decode(&msg); err != nil || msg.ID == "" {
		return model.Message{}, false
	}
	if msg.ConversationID != t.conversationID {
		return model.Message{}, false
	}
	return msg, t.add(msg)
}

// Send posts text to the open conversation and appends the stored row.
// Blank text is a no-op and returns a nil message.
func (t *Thread) Send(ctx context.Context, text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if t.state != ThreadReady {
		return nil, ErrNoConversation
	}

	msg, err := t.backend.Send(ctx, t.session, t.conversationID, model.SendMessageRequest{Content: text})
	if err != nil {
		return nil, err
	}
	t.add(*msg)
	return msg, nil
}

// MarkRead marks the open conversation read and returns the count.
func (t *Thread) MarkRead(ctx context.Context) int64 {
	if t.state != ThreadReady {
		return 0
	}
	return t.markRead(ctx)
}

// Close tears down the subscription and returns to idle.
func (t *Thread) Close() {
	if t.sub != nil {
		t.sub.Close()
		t.sub = nil
	}
	t.state = ThreadIdle
	t.conversationID = ""
	t.messages = nil
	t.seen = nil
	t.err = nil
}

func (t *Thread) load(ctx context.Context) error {
	msgs, err := t.backend.RecentMessages(ctx, t.conversationID, t.limit)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	t.messages = make([]model.Message, 0, len(msgs))
	t.seen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		t.add(m)
	}
	t.err = nil
	return nil
}

func (t *Thread) add(msg model.Message) bool {
	if _, dup := t.seen[msg.ID]; dup {
		return false
	}
	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	t.seen[msg.ID] = struct{}{}
	t.messages = append(t.messages, msg)
	return true
}

func (t *Thread) markRead(ctx context.Context) int64 {
	n, err := t.backend.MarkRead(ctx, t.session, t.conversationID)
	if err != nil {
		t.logger.Warn("mark read failed", zap.String("conversation_id", t.conversationID), zap.Error(err))
		return 0
	}
	return n
}

func (t *Thread) fail(err error) {
	id := t.conversationID
	t.Close()
	t.conversationID = id
	t.err = err
}
