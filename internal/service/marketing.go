package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// MarketingService manages push and email campaigns.
type MarketingService struct {
	campaigns store.CampaignStore
	users     store.UserStore
	sender    notify.Sender
	logger    *logger.Logger
}

// NewMarketingService creates a new marketing service.
func NewMarketingService(campaigns store.CampaignStore, users store.UserStore, sender notify.Sender, log *logger.Logger) *MarketingService {
	return &MarketingService{
		campaigns: campaigns,
		users:     users,
		sender:    sender,
		logger:    log.Named("marketing"),
	}
}

// List returns a page of campaigns, newest first.
func (s *MarketingService) List(ctx context.Context, page model.Page) (*model.ListResponse[model.Campaign], error) {
	page = page.Normalize()
	items, total, err := s.campaigns.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	return model.NewListResponse(items, total, page), nil
}

// Get returns one campaign.
func (s *MarketingService) Get(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading campaign", err)
	}
	return c, nil
}

// Create stores a new draft, or a scheduled campaign when a send time is given.
func (s *MarketingService) Create(ctx context.Context, session *model.Session, req model.CampaignRequest) (*model.Campaign, error) {
	if err := validateCampaign(req); err != nil {
		return nil, err
	}

	c := &model.Campaign{CreatedBy: session.StaffID}
	applyCampaign(c, req)
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	s.logger.Info("campaign created", zap.String("campaign_id", c.ID), zap.String("staff_id", session.StaffID))
	return c, nil
}

// Update replaces the editable fields of a campaign that has not been sent.
func (s *MarketingService) Update(ctx context.Context, session *model.Session, id string, req model.CampaignRequest) (*model.Campaign, error) {
	if err := validateCampaign(req); err != nil {
		return nil, err
	}

	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading campaign", err)
	}
	if !editable(c.Status) {
		return nil, fmt.Errorf("%w: campaign is %s", ErrInvalidTransition, c.Status)
	}

	applyCampaign(c, req)
	if err := s.campaigns.Update(ctx, c); err != nil {
		return nil, storeErr("updating campaign", err)
	}

	s.logger.Info("campaign updated", zap.String("campaign_id", id), zap.String("staff_id", session.StaffID))
	return c, nil
}

// Delete removes a campaign that has not been sent.
func (s *MarketingService) Delete(ctx context.Context, session *model.Session, id string) error {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return storeErr("loading campaign", err)
	}
	if !editable(c.Status) {
		return fmt.Errorf("%w: campaign is %s", ErrInvalidTransition, c.Status)
	}
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return storeErr("deleting campaign", err)
	}

	s.logger.Info("campaign deleted", zap.String("campaign_id", id), zap.String("staff_id", session.StaffID))
	return nil
}

// Send delivers a campaign to its audience and records the counters.
// Recipients without a device token or email address are skipped.
func (s *MarketingService) Send(ctx context.Context, session *model.Session, id string) (*model.CampaignSendResult, error) {
	if s.sender == nil {
		return nil, errors.New("no notification sender configured")
	}

	c, err := s.campaigns.MarkSending(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if _, getErr := s.campaigns.Get(ctx, id); getErr != nil {
			return nil, storeErr("loading campaign", getErr)
		}
		return nil, fmt.Errorf("%w: campaign already sent or sending", ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("claiming campaign: %w", err)
	}

	language := ""
	if c.Language != nil {
		language = *c.Language
	}
	recipients, err := s.users.Audience(ctx, c.Audience, language)
	if err != nil {
		s.release(ctx, c)
		return nil, fmt.Errorf("resolving audience: %w", err)
	}

	result := &model.CampaignSendResult{CampaignID: c.ID, Recipients: len(recipients)}
	if len(recipients) == 0 {
		s.logger.Warn("campaign has no recipients", zap.String("campaign_id", c.ID))
	}
	if c.Channel == model.ChannelEmail && c.HTML == nil {
		s.logger.Warn("campaign has no html template, sending text only", zap.String("campaign_id", c.ID))
	}

	for _, user := range recipients {
		var res notify.Result
		switch c.Channel {
		case model.ChannelPush:
			if user.PushToken == nil || *user.PushToken == "" {
				result.Skipped++
				continue
			}
			res = s.sender.SendPush(ctx, notify.PushMessage{
				Token: *user.PushToken,
				Title: c.Title,
				Body:  c.Body,
				Data:  withCampaignID(c.Data, c.ID),
			})
		case model.ChannelEmail:
			if user.Email == "" {
				result.Skipped++
				continue
			}
			msg := notify.EmailMessage{To: user.Email, Subject: c.Title, Text: c.Body}
			if c.HTML != nil {
				msg.HTML = *c.HTML
			}
			res = s.sender.SendEmail(ctx, msg)
		}

		if res.Success {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	if _, err := s.campaigns.MarkSent(context.WithoutCancel(ctx), c.ID, result.Sent, result.Failed); err != nil {
		return nil, fmt.Errorf("recording campaign result: %w", err)
	}

	s.logger.Info("campaign sent",
		zap.String("campaign_id", c.ID),
		zap.String("channel", string(c.Channel)),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.String("staff_id", session.StaffID),
	)
	return result, nil
}

// release hands a claimed campaign back so the send can be retried.
func (s *MarketingService) release(ctx context.Context, c *model.Campaign) {
	prev := model.CampaignDraft
	if c.ScheduledAt != nil {
		prev = model.CampaignScheduled
	}
	if err := s.campaigns.ReleaseSending(context.WithoutCancel(ctx), c.ID, prev); err != nil {
		s.logger.Error("campaign left in sending", zap.String("campaign_id", c.ID), zap.Error(err))
	}
}

func editable(status model.CampaignStatus) bool {
	return status == model.CampaignDraft || status == model.CampaignScheduled
}

func validateCampaign(req model.CampaignRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "is required")
	}
	if req.Channel != model.ChannelPush && req.Channel != model.ChannelEmail {
		return invalid("channel", "must be push or email")
	}
	switch req.Audience {
	case model.AudienceAll, model.AudiencePushTokens:
	case model.AudienceLanguage:
		if req.Language == nil || strings.TrimSpace(*req.Language) == "" {
			return invalid("language", "is required for a language audience")
		}
	default:
		return invalid("audience", "unknown audience")
	}
	if strings.TrimSpace(req.Title) == "" {
		return invalid("title", "is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return invalid("body", "is required")
	}
	if req.ScheduledAt != nil && req.ScheduledAt.Before(time.Now()) {
		return invalid("scheduled_at", "must be in the future")
	}
	return nil
}

func applyCampaign(c *model.Campaign, req model.CampaignRequest) {
	c.Name = strings.TrimSpace(req.Name)
	c.Channel = req.Channel
	c.Audience = req.Audience
	c.Language = req.Language
	c.Title = strings.TrimSpace(req.Title)
	c.Body = req.Body
	c.HTML = req.HTML
	c.Data = req.Data
	c.ScheduledAt = req.ScheduledAt
	c.Status = model.CampaignDraft
	if req.ScheduledAt != nil {
		c.Status = model.CampaignScheduled
	}
}

func withCampaignID(data map[string]any, id string) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["campaign_id"] = id
	return out
}
