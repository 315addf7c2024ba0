package model

import "time"

// CallRequestStatus is the state of a call-back request.
type CallRequestStatus string

const (
	CallRequestPending    CallRequestStatus = "pending"
	CallRequestInProgress CallRequestStatus = "in_progress"
	CallRequestResolved   CallRequestStatus = "resolved"
)

// CallRequest is a visitor asking support to phone them back.
type CallRequest struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	UserName    string            `json:"user_name,omitempty"`
	Phone       string            `json:"phone"`
	Topic       string            `json:"topic"`
	Status      CallRequestStatus `json:"status"`
	AssignedTo  *string           `json:"assigned_to,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CallRequestFilter narrows a call request listing.
type CallRequestFilter struct {
	Status CallRequestStatus
	Page   Page
}

// ResolveCallRequest closes a call request with notes.
type ResolveCallRequest struct {
	Notes string `json:"notes"`
}
