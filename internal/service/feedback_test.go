package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

var _ = Describe("FeedbackService", func() {
	var (
		ctx      context.Context
		feedback *mockFeedbackStore
		users    *mockUserStore
		sender   *mockSender
		feed     *realtime.LocalFeed
		svc      *service.FeedbackService
		session  *model.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		feedback = &mockFeedbackStore{
			replyFn: func(_ context.Context, id, staffID, reply string) (*model.Feedback, error) {
				return &model.Feedback{ID: id, UserID: "user-1", Status: model.FeedbackReplied, Reply: &reply, RepliedBy: &staffID}, nil
			},
		}
		users = &mockUserStore{
			getFn: func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Email: "visitor@example.com", FullName: "Ana"}, nil
			},
		}
		sender = newMockSender(true)
		feed = realtime.NewLocalFeed(8)
		session = &model.Session{StaffID: "staff-1", Role: model.RoleStaff}
		svc = service.NewFeedbackService(feedback, users, sender, feed, logger.Nop())
	})

	Describe("Reply", func() {
		It("rejects a blank reply without writing", func() {
			called := false
			feedback.replyFn = func(context.Context, string, string, string) (*model.Feedback, error) {
				called = true
				return nil, nil
			}

			_, err := svc.Reply(ctx, session, "fb-1", "   ")

			var verr *service.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("reply"))
			Expect(called).To(BeFalse())
		})

		It("stores the trimmed reply, publishes it and emails the visitor", func() {
			sub, err := feed.Subscribe(ctx, realtime.Filter{Table: model.TableFeedback})
			Expect(err).NotTo(HaveOccurred())
			defer sub.Close()

			fb, err := svc.Reply(ctx, session, "fb-1", "  Thank you!  ")

			Expect(err).NotTo(HaveOccurred())
			Expect(*fb.Reply).To(Equal("Thank you!"))
			Expect(*fb.RepliedBy).To(Equal("staff-1"))
			Eventually(sub.Events()).Should(Receive())
			Expect(sender.emails).To(HaveLen(1))
			Expect(sender.emails[0].To).To(Equal("visitor@example.com"))
			Expect(sender.emails[0].Text).To(ContainSubstring("Thank you!"))
		})

		It("still succeeds when the email is not delivered", func() {
			svc = service.NewFeedbackService(feedback, users, newMockSender(false), feed, logger.Nop())

			_, err := svc.Reply(ctx, session, "fb-1", "Noted")
			Expect(err).NotTo(HaveOccurred())
		})

		It("maps a missing row to ErrNotFound", func() {
			feedback.replyFn = nil

			_, err := svc.Reply(ctx, session, "missing", "Hello")
			Expect(err).To(MatchError(service.ErrNotFound))
		})
	})

	It("rejects unknown statuses", func() {
		_, err := svc.SetStatus(ctx, session, "fb-1", "archived")

		var verr *service.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Field).To(Equal("status"))
	})

	It("changes the status", func() {
		fb, err := svc.SetStatus(ctx, session, "fb-1", model.FeedbackHidden)

		Expect(err).NotTo(HaveOccurred())
		Expect(fb.Status).To(Equal(model.FeedbackHidden))
	})

	It("rejects ratings outside 1 to 5 when listing", func() {
		_, err := svc.List(ctx, model.FeedbackFilter{Rating: 6})
		Expect(err).To(HaveOccurred())
	})
})
