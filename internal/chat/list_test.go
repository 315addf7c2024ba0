package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/chat"
	"github.com/heritage-trails/admin-api/internal/model"
)

var _ = Describe("ConversationList", func() {
	var (
		ctx     context.Context
		backend *mockBackend
		list    *chat.ConversationList
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = &mockBackend{
			listFn: func(context.Context) ([]model.Conversation, error) {
				return []model.Conversation{
					conversation("b", at(5), 1),
					conversation("empty", nil, 0),
					conversation("a", at(10), 2),
					conversation("c", at(5), 0),
				}, nil
			},
		}
		list = chat.NewConversationList(backend)
		Expect(list.Refresh(ctx)).To(Succeed())
	})

	It("orders by last message, newest first, empty conversations last", func() {
		Expect(ids(list.Items())).To(Equal([]string{"a", "b", "c", "empty"}))
	})

	It("moves an updated conversation to the top", func() {
		changed := list.Apply(event(model.TableConversations, model.ChangeUpdate, conversation("c", at(20), 1)))

		Expect(changed).To(BeTrue())
		Expect(ids(list.Items())).To(Equal([]string{"c", "a", "b", "empty"}))
		c, ok := list.Get("c")
		Expect(ok).To(BeTrue())
		Expect(c.UnreadCountStaff).To(Equal(1))
	})

	It("adds newly created conversations", func() {
		list.Apply(event(model.TableConversations, model.ChangeInsert, conversation("d", at(1), 0)))

		Expect(ids(list.Items())).To(Equal([]string{"a", "b", "c", "d", "empty"}))
	})

	It("removes conversations that close", func() {
		closed := conversation("a", at(30), 0)
		closed.Status = model.ConversationClosed

		Expect(list.Apply(event(model.TableConversations, model.ChangeUpdate, closed))).To(BeTrue())
		Expect(ids(list.Items())).To(Equal([]string{"b", "c", "empty"}))
	})

	It("ignores events for other tables", func() {
		msg := model.Message{ID: "m1", ConversationID: "a"}

		Expect(list.Apply(event(model.TableMessages, model.ChangeInsert, msg))).To(BeFalse())
	})

	It("lowers the unread badge without going negative", func() {
		Expect(list.ApplyRead("a", 5)).To(BeTrue())

		a, _ := list.Get("a")
		Expect(a.UnreadCountStaff).To(Equal(0))
	})

	It("keeps the previous list when a refresh fails and recovers later", func() {
		failure := errors.New("connection reset")
		backend.listFn = func(context.Context) ([]model.Conversation, error) {
			return nil, failure
		}

		Expect(list.Refresh(ctx)).To(MatchError(failure))
		Expect(list.Err()).To(MatchError(failure))
		Expect(ids(list.Items())).To(Equal([]string{"a", "b", "c", "empty"}))

		backend.listFn = func(context.Context) ([]model.Conversation, error) {
			return []model.Conversation{conversation("z", at(1), 0)}, nil
		}

		Expect(list.Refresh(ctx)).To(Succeed())
		Expect(list.Err()).NotTo(HaveOccurred())
		Expect(ids(list.Items())).To(Equal([]string{"z"}))
	})
})
