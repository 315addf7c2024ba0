package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// FeedbackService handles visitor feedback moderation.
type FeedbackService struct {
	feedback store.FeedbackStore
	users    store.UserStore
	sender   notify.Sender
	events   eventPublisher
	logger   *logger.Logger
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(feedback store.FeedbackStore, users store.UserStore, sender notify.Sender, feed realtime.Feed, log *logger.Logger) *FeedbackService {
	log = log.Named("feedback")
	return &FeedbackService{
		feedback: feedback,
		users:    users,
		sender:   sender,
		events:   eventPublisher{feed: feed, logger: log},
		logger:   log,
	}
}

// List returns a page of feedback.
func (s *FeedbackService) List(ctx context.Context, filter model.FeedbackFilter) (*model.ListResponse[model.Feedback], error) {
	if filter.Rating < 0 || filter.Rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "unknown status")
	}
	filter.Page = filter.Page.Normalize()

	items, total, err := s.feedback.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return model.NewListResponse(items, total, filter.Page), nil
}

// Get returns one feedback entry.
func (s *FeedbackService) Get(ctx context.Context, id string) (*model.Feedback, error) {
	fb, err := s.feedback.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading feedback", err)
	}
	return fb, nil
}

// Reply stores a staff reply and emails it to the visitor.
func (s *FeedbackService) Reply(ctx context.Context, session *model.Session, id, reply string) (*model.Feedback, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, invalid("reply", "is required")
	}

	fb, err := s.feedback.Reply(ctx, id, session.StaffID, reply)
	if err != nil {
		return nil, storeErr("replying to feedback", err)
	}

	s.logger.Info("feedback replied", zap.String("feedback_id", id), zap.String("staff_id", session.StaffID))
	s.events.publish(ctx, model.TableFeedback, model.ChangeUpdate, fb)
	s.emailReply(ctx, fb, reply)
	return fb, nil
}

// SetStatus changes the moderation status.
func (s *FeedbackService) SetStatus(ctx context.Context, session *model.Session, id string, status model.FeedbackStatus) (*model.Feedback, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown status")
	}

	fb, err := s.feedback.SetStatus(ctx, id, status)
	if err != nil {
		return nil, storeErr("updating feedback", err)
	}

	s.logger.Info("feedback status changed",
		zap.String("feedback_id", id),
		zap.String("status", string(status)),
		zap.String("staff_id", session.StaffID),
	)
	s.events.publish(ctx, model.TableFeedback, model.ChangeUpdate, fb)
	return fb, nil
}

func (s *FeedbackService) emailReply(ctx context.Context, fb *model.Feedback, reply string) {
	if s.sender == nil {
		return
	}

	user, err := s.users.Get(ctx, fb.UserID)
	if err != nil {
		s.logger.Warn("feedback author not loaded", zap.String("feedback_id", fb.ID), zap.Error(err))
		return
	}
	if user.Email == "" {
		s.logger.Warn("feedback author has no email", zap.String("user_id", user.ID))
		return
	}

	res := s.sender.SendEmail(ctx, notify.EmailMessage{
		To:      user.Email,
		Subject: "We replied to your feedback",
		Text:    fmt.Sprintf("Hi %s,\n\nThank you for your feedback.\n\n%s\n", user.FullName, reply),
	})
	if !res.Success {
		s.logger.Warn("feedback reply email not delivered", zap.String("feedback_id", fb.ID), zap.String("error", res.Error))
	}
}
