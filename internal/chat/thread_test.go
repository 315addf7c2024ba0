package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/chat"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

var _ = Describe("Thread", func() {
	var (
		ctx     context.Context
		backend *mockBackend
		feed    *realtime.LocalFeed
		thread  *chat.Thread
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = &mockBackend{
			recentFn: func(_ context.Context, id string, _ int) ([]model.Message, error) {
				if id == "empty" {
					return []model.Message{}, nil
				}
				return []model.Message{
					{ID: "m1", ConversationID: id, SenderRole: model.SenderUser},
					{ID: "m2", ConversationID: id, SenderRole: model.SenderStaff},
				}, nil
			},
		}
		feed = realtime.NewLocalFeed(8)
		thread = chat.NewThread(backend, feed, &model.Session{StaffID: "staff-1"}, 50, logger.Nop())
		DeferCleanup(thread.Close)
	})

	It("is ready with no messages for an empty conversation", func() {
		_, err := thread.Select(ctx, "empty")

		Expect(err).NotTo(HaveOccurred())
		Expect(thread.State()).To(Equal(chat.ThreadReady))
		Expect(thread.Messages()).To(BeEmpty())
	})

	It("loads messages and reports how many were marked read", func() {
		backend.markReadFn = func(context.Context, string) (int64, error) { return 3, nil }

		n, err := thread.Select(ctx, "c1")

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(3)))
		Expect(messageIDs(thread.Messages())).To(Equal([]string{"m1", "m2"}))
	})

	It("treats a failed mark read as zero", func() {
		backend.markReadFn = func(context.Context, string) (int64, error) { return 0, errors.New("timeout") }

		n, err := thread.Select(ctx, "c1")

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(thread.State()).To(Equal(chat.ThreadReady))
	})

	It("goes back to idle when loading fails", func() {
		backend.recentFn = func(context.Context, string, int) ([]model.Message, error) {
			return nil, errors.New("boom")
		}

		_, err := thread.Select(ctx, "c1")

		Expect(err).To(HaveOccurred())
		Expect(thread.State()).To(Equal(chat.ThreadIdle))
		Expect(thread.Err()).To(HaveOccurred())
		Expect(feed.Subscribers()).To(BeZero())
	})

	It("tears down the previous subscription on reselect", func() {
		_, err := thread.Select(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		first := thread.Subscription()

		_, err = thread.Select(ctx, "c2")
		Expect(err).NotTo(HaveOccurred())

		Expect(feed.Subscribers()).To(Equal(1))
		Eventually(first.Events()).Should(BeClosed())
		Expect(thread.ConversationID()).To(Equal("c2"))
	})

	It("appends live inserts once", func() {
		_, err := thread.Select(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())

		ev := event(model.TableMessages, model.ChangeInsert, model.Message{ID: "m3", ConversationID: "c1"})
		_, changed := thread.Apply(ev)
		Expect(changed).To(BeTrue())
		_, changed = thread.Apply(ev)
		Expect(changed).To(BeFalse())

		dup := event(model.TableMessages, model.ChangeInsert, model.Message{ID: "m1", ConversationID: "c1"})
		_, changed = thread.Apply(dup)
		Expect(changed).To(BeFalse())

		Expect(messageIDs(thread.Messages())).To(Equal([]string{"m1", "m2", "m3"}))
	})

	It("ignores messages from other conversations", func() {
		_, err := thread.Select(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())

		_, changed := thread.Apply(event(model.TableMessages, model.ChangeInsert, model.Message{ID: "x", ConversationID: "c9"}))

		Expect(changed).To(BeFalse())
	})

	It("receives filtered inserts through the feed", func() {
		_, err := thread.Select(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())

		Expect(feed.Publish(ctx, event(model.TableMessages, model.ChangeInsert, model.Message{ID: "other", ConversationID: "c2"}))).To(Succeed())
		Expect(feed.Publish(ctx, event(model.TableMessages, model.ChangeInsert, model.Message{ID: "m9", ConversationID: "c1"}))).To(Succeed())

		var ev model.ChangeEvent
		Eventually(thread.Subscription().Events()).Should(Receive(&ev))
		msg, changed := thread.Apply(ev)
		Expect(changed).To(BeTrue())
		Expect(msg.ID).To(Equal("m9"))
	})

	Describe("Send", func() {
		It("does nothing for blank text", func() {
			_, err := thread.Select(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			msg, err := thread.Send(ctx, "   ")

			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(BeNil())
			Expect(backend.SendCalls()).To(BeZero())
		})

		It("requires a selected conversation", func() {
			_, err := thread.Send(ctx, "hello")

			Expect(err).To(MatchError(chat.ErrNoConversation))
		})

		It("appends the stored message once even when the insert event follows", func() {
			_, err := thread.Select(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())

			msg, err := thread.Send(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			_, changed := thread.Apply(event(model.TableMessages, model.ChangeInsert, *msg))

			Expect(changed).To(BeFalse())
			Expect(messageIDs(thread.Messages())).To(Equal([]string{"m1", "m2", "sent"}))
		})
	})
})
