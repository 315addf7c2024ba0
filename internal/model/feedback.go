package model

import "time"

// FeedbackStatus is the moderation state of a feedback entry.
type FeedbackStatus string

const (
	FeedbackNew      FeedbackStatus = "new"
	FeedbackReplied  FeedbackStatus = "replied"
	FeedbackResolved FeedbackStatus = "resolved"
	FeedbackHidden   FeedbackStatus = "hidden"
)

// Valid reports whether s is a known status.
func (s FeedbackStatus) Valid() bool {
	switch s {
	case FeedbackNew, FeedbackReplied, FeedbackResolved, FeedbackHidden:
		return true
	}
	return false
}

// Feedback is a rating and comment left by a visitor.
type Feedback struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	UserName  string         `json:"user_name,omitempty"`
	BookingID *string        `json:"booking_id,omitempty"`
	SiteID    *string        `json:"site_id,omitempty"`
	SiteName  string         `json:"site_name,omitempty"`
	Rating    int            `json:"rating"`
	Comment   string         `json:"comment"`
	Status    FeedbackStatus `json:"status"`
	Reply     *string        `json:"reply,omitempty"`
	RepliedBy *string        `json:"replied_by,omitempty"`
	RepliedAt *time.Time     `json:"replied_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FeedbackFilter narrows a feedback listing.
type FeedbackFilter struct {
	Rating int
	Status FeedbackStatus
	SiteID string
	Page   Page
}

// ReplyFeedbackRequest is a staff reply to feedback.
type ReplyFeedbackRequest struct {
	Reply string `json:"reply"`
}

// FeedbackStatusRequest changes the moderation state.
type FeedbackStatusRequest struct {
	Status FeedbackStatus `json:"status"`
}
