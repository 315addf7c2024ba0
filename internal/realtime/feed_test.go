package realtime_test

import (
	"context"
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
)

func messageEvent(id, conversationID string) model.ChangeEvent {
	ev, err := realtime.NewEvent(model.TableMessages, model.ChangeInsert, model.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderRole:     model.SenderUser,
		Content:        "hello",
	})
	Expect(err).NotTo(HaveOccurred())
	return ev
}

var _ = Describe("Filter", func() {
	It("matches on table, type and column value", func() {
		f := realtime.Filter{
			Table:  model.TableMessages,
			Types:  []model.ChangeType{model.ChangeInsert},
			Column: "conversation_id",
			Value:  "c1",
		}

		Expect(f.Matches(messageEvent("m1", "c1"))).To(BeTrue())
		Expect(f.Matches(messageEvent("m1", "c2"))).To(BeFalse())

		upd := messageEvent("m1", "c1")
		upd.Type = model.ChangeUpdate
		Expect(f.Matches(upd)).To(BeFalse())

		other := messageEvent("m1", "c1")
		other.Table = model.TableConversations
		Expect(f.Matches(other)).To(BeFalse())
	})

	It("matches every type when none are listed", func() {
		f := realtime.Filter{Table: model.TableMessages}
		ev := messageEvent("m1", "c1")
		ev.Type = model.ChangeDelete
		Expect(f.Matches(ev)).To(BeTrue())
	})

	It("rejects records without the filtered column", func() {
		f := realtime.Filter{Table: "t", Column: "missing", Value: "x"}
		Expect(f.Matches(model.ChangeEvent{Table: "t", Record: json.RawMessage(`{"id":"1"}`)})).To(BeFalse())
	})
})

var _ = Describe("LocalFeed", func() {
	var (
		ctx  context.Context
		feed *realtime.LocalFeed
	)

	BeforeEach(func() {
		ctx = context.Background()
		feed = realtime.NewLocalFeed(4)
	})

	It("delivers matching events in publish order", func() {
		sub, err := feed.Subscribe(ctx, realtime.Filter{Table: model.TableMessages, Column: "conversation_id", Value: "c1"})
		Expect(err).NotTo(HaveOccurred())
		defer sub.Close()

		Expect(feed.Publish(ctx, messageEvent("m1", "c1"))).To(Succeed())
		Expect(feed.Publish(ctx, messageEvent("m2", "c2"))).To(Succeed())
		Expect(feed.Publish(ctx, messageEvent("m3", "c1"))).To(Succeed())

		first := <-sub.Events()
		second := <-sub.Events()
		Expect(first.Sequence).To(BeNumerically("<", second.Sequence))

		var m model.Message
		Expect(second.Decode(&m)).To(Succeed())
		Expect(m.ID).To(Equal("m3"))
		Expect(sub.Events()).NotTo(Receive())
	})

	It("drops the oldest events when the buffer is full", func() {
		sub, err := feed.Subscribe(ctx, realtime.Filter{Table: model.TableMessages})
		Expect(err).NotTo(HaveOccurred())
		defer sub.Close()

		for i := 0; i < 6; i++ {
			Expect(feed.Publish(ctx, messageEvent(fmt.Sprintf("m%d", i), "c1"))).To(Succeed())
		}

		Expect(sub.Dropped()).To(Equal(uint64(2)))
		Expect(sub.Overflowed()).To(BeTrue())
		Expect(sub.Overflowed()).To(BeFalse())

		var ids []string
		for i := 0; i < 4; i++ {
			var m model.Message
			Expect((<-sub.Events()).Decode(&m)).To(Succeed())
			ids = append(ids, m.ID)
		}
		Expect(ids).To(Equal([]string{"m2", "m3", "m4", "m5"}))
	})

	It("unregisters closed subscriptions", func() {
		sub, err := feed.Subscribe(ctx, realtime.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(feed.Subscribers()).To(Equal(1))

		sub.Close()
		sub.Close()

		Expect(feed.Subscribers()).To(Equal(0))
		Eventually(sub.Events()).Should(BeClosed())
		Expect(feed.Publish(ctx, messageEvent("m1", "c1"))).To(Succeed())
	})
})

var _ = Describe("ParseNotification", func() {
	It("accepts trigger operation names", func() {
		ev, err := realtime.ParseNotification(`{"table":"conversations","type":"UPDATE","record":{"id":"c1"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Table).To(Equal(model.TableConversations))
		Expect(ev.Type).To(Equal(model.ChangeUpdate))
		Expect(string(ev.Record)).To(Equal(`{"id":"c1"}`))
	})

	It("rejects unknown types and missing tables", func() {
		_, err := realtime.ParseNotification(`{"table":"x","type":"TRUNCATE"}`)
		Expect(err).To(HaveOccurred())

		_, err = realtime.ParseNotification(`{"type":"insert"}`)
		Expect(err).To(HaveOccurred())

		_, err = realtime.ParseNotification(`not json`)
		Expect(err).To(HaveOccurred())
	})
})
