package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

var _ = Describe("ChatService", func() {
	var (
		ctx     context.Context
		convs   *mockConversationStore
		msgs    *mockMessageStore
		users   *mockUserStore
		sender  *mockSender
		feed    *realtime.LocalFeed
		svc     *service.ChatService
		session *model.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{
			getFn: func(_ context.Context, id string) (*model.Conversation, error) {
				return &model.Conversation{ID: id, UserID: "user-1", Status: model.ConversationActive}, nil
			},
		}
		msgs = &mockMessageStore{}
		users = &mockUserStore{}
		sender = newMockSender(true)
		feed = realtime.NewLocalFeed(16)
		session = &model.Session{ID: "sess-1", StaffID: "staff-1", Role: model.RoleStaff}

		svc = service.NewChatService(service.ChatServiceConfig{
			Conversations: convs,
			Messages:      msgs,
			Users:         users,
			TxRunner: &mockTxRunner{
				withTxFn: func(_ context.Context, fn func(stores service.StoreProvider) error) error {
					return fn(&mockStoreProvider{conversations: convs, messages: msgs, users: users})
				},
			},
			Sender:      sender,
			Feed:        feed,
			ThreadLimit: 50,
		}, logger.Nop())
	})

	subscribe := func(table string) *realtime.Subscription {
		sub, err := feed.Subscribe(ctx, realtime.Filter{Table: table})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(sub.Close)
		return sub
	}

	Describe("Send", func() {
		It("does nothing for whitespace-only text", func() {
			_, err := svc.Send(ctx, session, "conv-1", model.SendMessageRequest{Content: "  \n\t "})

			Expect(err).To(MatchError(service.ErrEmptyMessage))
			Expect(msgs.insertCalls).To(BeZero())
		})

		It("stores a staff message and announces it", func() {
			createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			msgs.insertFn = func(_ context.Context, msg *model.Message) error {
				Expect(msg.SenderRole).To(Equal(model.SenderStaff))
				Expect(msg.SenderID).To(Equal("staff-1"))
				Expect(msg.Content).To(Equal("Hello there"))
				msg.ID = "msg-1"
				msg.CreatedAt = createdAt
				return nil
			}
			var recorded string
			convs.recordStaffMessageFn = func(_ context.Context, id, text string, at time.Time) (*model.Conversation, error) {
				recorded = text
				Expect(at).To(Equal(createdAt))
				return &model.Conversation{ID: id, UserID: "user-1", LastMessageText: &text, LastMessageAt: &at}, nil
			}
			messageEvents := subscribe(model.TableMessages)
			conversationEvents := subscribe(model.TableConversations)

			msg, err := svc.Send(ctx, session, "conv-1", model.SendMessageRequest{Content: "  Hello there "})

			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ID).To(Equal("msg-1"))
			Expect(recorded).To(Equal("Hello there"))

			var ev model.ChangeEvent
			Eventually(messageEvents.Events()).Should(Receive(&ev))
			Expect(ev.Type).To(Equal(model.ChangeInsert))
			var row model.Message
			Expect(ev.Decode(&row)).To(Succeed())
			Expect(row.ID).To(Equal("msg-1"))

			Eventually(conversationEvents.Events()).Should(Receive(&ev))
			Expect(ev.Type).To(Equal(model.ChangeUpdate))
		})

		It("pushes the reply to the end user's device", func() {
			users.getFn = func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, PushToken: strPtr("device-token")}, nil
			}

			_, err := svc.Send(ctx, session, "conv-1", model.SendMessageRequest{Content: "We are open until 6pm"})

			Expect(err).NotTo(HaveOccurred())
			Expect(sender.pushCount()).To(Equal(1))
			Expect(sender.pushes[0].Token).To(Equal("device-token"))
			Expect(sender.pushes[0].Data).To(HaveKeyWithValue("conversation_id", "conv-1"))
		})

		It("refuses to write into a closed conversation", func() {
			convs.getFn = func(_ context.Context, id string) (*model.Conversation, error) {
				return &model.Conversation{ID: id, Status: model.ConversationClosed}, nil
			}

			_, err := svc.Send(ctx, session, "conv-1", model.SendMessageRequest{Content: "hi"})

			Expect(errors.Is(err, service.ErrConversationClosed)).To(BeTrue())
			Expect(errors.Is(err, service.ErrInvalidTransition)).To(BeTrue())
			Expect(msgs.insertCalls).To(BeZero())
		})

		It("reports unknown conversations as not found", func() {
			convs.getFn = nil

			_, err := svc.Send(ctx, session, "missing", model.SendMessageRequest{Content: "hi"})

			Expect(err).To(MatchError(service.ErrNotFound))
		})
	})

	Describe("MarkRead", func() {
		It("leaves no unread end-user message and lowers the badge by the count", func() {
			thread := []model.Message{
				{ID: "1", SenderRole: model.SenderUser},
				{ID: "2", SenderRole: model.SenderStaff},
				{ID: "3", SenderRole: model.SenderUser},
				{ID: "4", SenderRole: model.SenderUser, IsRead: true},
			}
			msgs.markReadFromFn = func(_ context.Context, _ string, role model.SenderRole) (int64, error) {
				var n int64
				for i := range thread {
					if thread[i].SenderRole == role && !thread[i].IsRead {
						thread[i].IsRead = true
						n++
					}
				}
				return n, nil
			}
			var decrementedBy int64
			convs.decrementStaffUnreadFn = func(_ context.Context, id string, n int64) (*model.Conversation, error) {
				decrementedBy = n
				return &model.Conversation{ID: id}, nil
			}
			events := subscribe(model.TableConversations)

			n, err := svc.MarkRead(ctx, session, "conv-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
			Expect(decrementedBy).To(Equal(int64(2)))
			for _, m := range thread {
				if m.SenderRole == model.SenderUser {
					Expect(m.IsRead).To(BeTrue(), "message %s still unread", m.ID)
				}
			}
			Eventually(events.Events()).Should(Receive())
		})

		It("publishes nothing when nothing changed", func() {
			events := subscribe(model.TableConversations)

			n, err := svc.MarkRead(ctx, session, "conv-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Consistently(events.Events(), 50*time.Millisecond).ShouldNot(Receive())
		})
	})

	Describe("RecentMessages", func() {
		It("returns an empty thread for a conversation without messages", func() {
			got, err := svc.RecentMessages(ctx, "conv-1", 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got).To(BeEmpty())
		})

		It("caps the limit at the configured thread size", func() {
			var asked int
			msgs.listRecentFn = func(_ context.Context, _ string, limit int) ([]model.Message, error) {
				asked = limit
				return []model.Message{}, nil
			}

			_, err := svc.RecentMessages(ctx, "conv-1", 5000)

			Expect(err).NotTo(HaveOccurred())
			Expect(asked).To(Equal(50))
		})
	})

	Describe("Assign", func() {
		It("assigns to the caller when no staff id is given", func() {
			convs.assignFn = func(_ context.Context, id, staffID string) (*model.Conversation, error) {
				return &model.Conversation{ID: id, AssignedStaffID: &staffID}, nil
			}

			conv, err := svc.Assign(ctx, session, "conv-1", "")

			Expect(err).NotTo(HaveOccurred())
			Expect(*conv.AssignedStaffID).To(Equal("staff-1"))
		})

		It("rejects an assignee who is not staff", func() {
			users.getFn = func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Role: model.RoleCustomer, Active: true}, nil
			}

			_, err := svc.Assign(ctx, session, "conv-1", "user-9")

			var verr *service.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("staff_id"))
		})
	})

	It("closes conversations without deleting them", func() {
		convs.closeFn = func(_ context.Context, id string) (*model.Conversation, error) {
			return &model.Conversation{ID: id, Status: model.ConversationClosed}, nil
		}

		conv, err := svc.Close(ctx, session, "conv-1")

		Expect(err).NotTo(HaveOccurred())
		Expect(conv.Status).To(Equal(model.ConversationClosed))
	})
})
