package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/model"
)

// The temporary table shadows messages for the lifetime of the transaction.
const messagesTable = `CREATE TEMP TABLE messages (
	id              text PRIMARY KEY DEFAULT md5(random()::text || clock_timestamp()::text),
	conversation_id text NOT NULL,
	sender_id       text NOT NULL,
	sender_role     text NOT NULL,
	content         text NOT NULL,
	attachment_url  text,
	is_read         boolean NOT NULL DEFAULT false,
	read_at         timestamptz,
	is_deleted      boolean NOT NULL DEFAULT false,
	created_at      timestamptz NOT NULL DEFAULT now()
) ON COMMIT DROP`

var _ = Describe("messageStore", func() {
	var (
		ctx      context.Context
		tx       pgx.Tx
		messages MessageStore
	)

	seed := func(conversationID string, role model.SenderRole, isRead bool, createdAt time.Time) {
		_, err := tx.Exec(ctx, `INSERT INTO messages
				(conversation_id, sender_id, sender_role, content, is_read, created_at)
			VALUES ($1, 'seed', $2, 'seeded', $3, $4)`, conversationID, role, isRead, createdAt)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		tx = postgresTx(ctx)
		_, err := tx.Exec(ctx, messagesTable)
		Expect(err).NotTo(HaveOccurred())
		messages = NewStores(tx).Messages()
	})

	Describe("Insert", func() {
		It("never stamps a message earlier than the newest one in its conversation", func() {
			ahead := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
			seed("conv-1", model.SenderUser, false, ahead)

			msg := &model.Message{ConversationID: "conv-1", SenderID: "staff-1", SenderRole: model.SenderStaff, Content: "Noted."}
			Expect(messages.Insert(ctx, msg)).To(Succeed())

			Expect(msg.ID).NotTo(BeEmpty())
			Expect(msg.CreatedAt).To(BeTemporally(">=", ahead))
		})

		It("ignores other conversations when clamping", func() {
			ahead := time.Now().Add(time.Hour)
			seed("conv-2", model.SenderUser, false, ahead)

			msg := &model.Message{ConversationID: "conv-1", SenderID: "staff-1", SenderRole: model.SenderStaff, Content: "Hello"}
			Expect(messages.Insert(ctx, msg)).To(Succeed())

			Expect(msg.CreatedAt).To(BeTemporally("<", ahead))
		})
	})

	Describe("MarkReadFrom", func() {
		It("flips only the unread messages of that sender in that conversation", func() {
			now := time.Now()
			seed("conv-1", model.SenderUser, false, now)
			seed("conv-1", model.SenderUser, false, now)
			seed("conv-1", model.SenderUser, true, now)
			seed("conv-1", model.SenderStaff, false, now)
			seed("conv-2", model.SenderUser, false, now)

			n, err := messages.MarkReadFrom(ctx, "conv-1", model.SenderUser)

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			unread, err := messages.CountUnreadFrom(ctx, "conv-1", model.SenderUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(unread).To(BeZero())

			staffUnread, err := messages.CountUnreadFrom(ctx, "conv-1", model.SenderStaff)
			Expect(err).NotTo(HaveOccurred())
			Expect(staffUnread).To(Equal(int64(1)))

			otherUnread, err := messages.CountUnreadFrom(ctx, "conv-2", model.SenderUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(otherUnread).To(Equal(int64(1)))
		})

		It("returns zero when nothing is unread", func() {
			seed("conv-1", model.SenderUser, true, time.Now())

			n, err := messages.MarkReadFrom(ctx, "conv-1", model.SenderUser)

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})
})
