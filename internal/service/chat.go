package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

// DefaultThreadLimit is how many messages a thread loads when the caller
// does not say.
const DefaultThreadLimit = 100

const maxMessageLength = 4000

// ChatService handles the staff side of support conversations.
type ChatService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	users         store.UserStore
	txRunner      TxRunner
	sender        notify.Sender
	events        eventPublisher
	threadLimit   int
	logger        *logger.Logger
}

// ChatServiceConfig holds the dependencies of ChatService.
type ChatServiceConfig struct {
	Conversations store.ConversationStore
	Messages      store.MessageStore
	Users         store.UserStore
	TxRunner      TxRunner
	Sender        notify.Sender
	Feed          realtime.Feed
	ThreadLimit   int
}

// NewChatService creates a new chat service.
func NewChatService(cfg ChatServiceConfig, log *logger.Logger) *ChatService {
	log = log.Named("chat")
	if cfg.ThreadLimit <= 0 {
		cfg.ThreadLimit = DefaultThreadLimit
	}
	return &ChatService{
		conversations: cfg.Conversations,
		messages:      cfg.Messages,
		users:         cfg.Users,
		txRunner:      cfg.TxRunner,
		sender:        cfg.Sender,
		events:        eventPublisher{feed: cfg.Feed, logger: log},
		threadLimit:   cfg.ThreadLimit,
		logger:        log,
	}
}

// ListActiveConversations returns active conversations, most recent
// message first and conversations without messages last.
func (s *ChatService) ListActiveConversations(ctx context.Context) ([]model.Conversation, error) {
	convs, err := s.conversations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return convs, nil
}

// GetConversation returns one conversation.
func (s *ChatService) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading conversation", err)
	}
	return conv, nil
}

// RecentMessages returns up to limit of the newest messages of a
// conversation in ascending creation order. A conversation without
// messages yields an empty slice.
func (s *ChatService) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > s.threadLimit {
		limit = s.threadLimit
	}
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return nil, storeErr("loading conversation", err)
	}

	msgs, err := s.messages.ListRecent(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// Send stores a staff message and returns the row with its server-assigned
// id and timestamp. Blank text is rejected with ErrEmptyMessage and nothing
// is written.
func (s *ChatService) Send(ctx context.Context, session *model.Session, conversationID string, req model.SendMessageRequest) (*model.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && req.AttachmentURL == nil {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, invalid("content", fmt.Sprintf("must be at most %d characters", maxMessageLength))
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       session.StaffID,
		SenderRole:     model.SenderStaff,
		Content:        content,
		AttachmentURL:  req.AttachmentURL,
	}

	var conv *model.Conversation
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		current, err := stores.Conversations().Get(ctx, conversationID)
		if err != nil {
			return storeErr("loading conversation", err)
		}
		if current.Status == model.ConversationClosed {
			return ErrConversationClosed
		}

		if err := stores.Messages().Insert(ctx, msg); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}

		conv, err = stores.Conversations().RecordStaffMessage(ctx, conversationID, preview(msg), msg.CreatedAt)
		if err != nil {
			return storeErr("updating conversation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(model.SenderStaff)).Inc()
	s.logger.Info("message sent",
		zap.String("conversation_id", conversationID),
		zap.String("message_id", msg.ID),
		zap.String("staff_id", session.StaffID),
	)

	s.events.publish(ctx, model.TableMessages, model.ChangeInsert, msg)
	s.events.publish(ctx, model.TableConversations, model.ChangeUpdate, conv)
	s.notifyUser(ctx, conv, msg)
	return msg, nil
}

// MarkRead flips every unread end-user message of a conversation to read
// and lowers the staff unread counter by the number of rows changed. It
// returns that number.
func (s *ChatService) MarkRead(ctx context.Context, session *model.Session, conversationID string) (int64, error) {
	var (
		n    int64
		conv *model.Conversation
	)
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		var err error
		n, err = stores.Messages().MarkReadFrom(ctx, conversationID, model.SenderUser)
		if err != nil {
			return fmt.Errorf("marking messages read: %w", err)
		}
		conv, err = stores.Conversations().DecrementStaffUnread(ctx, conversationID, n)
		if err != nil {
			return storeErr("updating conversation", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if n > 0 {
		metrics.MessagesMarkedRead.Add(float64(n))
		s.logger.Debug("messages marked read",
			zap.String("conversation_id", conversationID),
			zap.Int64("count", n),
			zap.String("staff_id", session.StaffID),
		)
		s.events.publish(ctx, model.TableConversations, model.ChangeUpdate, conv)
	}
	return n, nil
}

// Assign hands a conversation to a staff member. An empty staffID assigns
// it to the caller.
func (s *ChatService) Assign(ctx context.Context, session *model.Session, conversationID, staffID string) (*model.Conversation, error) {
	if staffID == "" {
		staffID = session.StaffID
	}
	if staffID != session.StaffID {
		staff, err := s.users.Get(ctx, staffID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("staff_id", "unknown staff member")
			}
			return nil, fmt.Errorf("loading staff: %w", err)
		}
		if (staff.Role != model.RoleStaff && staff.Role != model.RoleAdmin) || !staff.Active {
			return nil, invalid("staff_id", "is not an active staff member")
		}
	}

	conv, err := s.conversations.Assign(ctx, conversationID, staffID)
	if err != nil {
		return nil, storeErr("assigning conversation", err)
	}

	s.logger.Info("conversation assigned",
		zap.String("conversation_id", conversationID),
		zap.String("assignee", staffID),
		zap.String("staff_id", session.StaffID),
	)
	s.events.publish(ctx, model.TableConversations, model.ChangeUpdate, conv)
	return conv, nil
}

// Close moves a conversation to closed. Conversations are never deleted.
func (s *ChatService) Close(ctx context.Context, session *model.Session, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversations.Close(ctx, conversationID)
	if err != nil {
		return nil, storeErr("closing conversation", err)
	}

	s.logger.Info("conversation closed",
		zap.String("conversation_id", conversationID),
		zap.String("staff_id", session.StaffID),
	)
	s.events.publish(ctx, model.TableConversations, model.ChangeUpdate, conv)
	return conv, nil
}

func (s *ChatService) notifyUser(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	if s.sender == nil || conv == nil {
		return
	}

	user, err := s.users.Get(ctx, conv.UserID)
	if err != nil {
		s.logger.Warn("conversation user not loaded", zap.String("conversation_id", conv.ID), zap.Error(err))
		return
	}
	if user.PushToken == nil || *user.PushToken == "" {
		return
	}

	res := s.sender.SendPush(ctx, notify.PushMessage{
		Token: *user.PushToken,
		Title: "New reply from support",
		Body:  preview(msg),
		Data: map[string]any{
			"type":            "chat_message",
			"conversation_id": conv.ID,
			"message_id":      msg.ID,
		},
	})
	if !res.Success {
		s.logger.Warn("chat push not delivered", zap.String("conversation_id", conv.ID), zap.String("error", res.Error))
	}
}

// preview is the last-message snapshot text for a message.
func preview(msg *model.Message) string {
	text := msg.Content
	if text == "" && msg.AttachmentURL != nil {
		return "[attachment]"
	}
	if utf8.RuneCountInString(text) > 120 {
		runes := []rune(text)
		text = string(runes[:120]) + "…"
	}
	return text
}
