package model

import "time"

// CampaignStatus is the lifecycle state of a marketing campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
)

// CampaignChannel is the delivery channel of a campaign.
type CampaignChannel string

const (
	ChannelPush  CampaignChannel = "push"
	ChannelEmail CampaignChannel = "email"
)

// Audience selects which users a campaign targets.
type Audience string

const (
	AudienceAll        Audience = "all"
	AudiencePushTokens Audience = "push_enabled"
	AudienceLanguage   Audience = "language"
)

// Campaign is a marketing push or email blast.
type Campaign struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Channel     CampaignChannel `json:"channel"`
	Audience    Audience        `json:"audience"`
	Language    *string         `json:"language,omitempty"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	HTML        *string         `json:"html,omitempty"`
	Data        map[string]any  `json:"data,omitempty"`
	Status      CampaignStatus  `json:"status"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
	SentCount   int             `json:"sent_count"`
	FailedCount int             `json:"failed_count"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CampaignRequest creates or replaces the editable fields of a campaign.
type CampaignRequest struct {
	Name        string          `json:"name"`
	Channel     CampaignChannel `json:"channel"`
	Audience    Audience        `json:"audience"`
	Language    *string         `json:"language,omitempty"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	HTML        *string         `json:"html,omitempty"`
	Data        map[string]any  `json:"data,omitempty"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

// CampaignSendResult summarises one campaign send.
type CampaignSendResult struct {
	CampaignID string `json:"campaign_id"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
}
