// Package model defines data structures for the admin console.
package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is a support thread between one end user and the staff.
type Conversation struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	UserName        string             `json:"user_name,omitempty"`
	AssignedStaffID *string            `json:"assigned_staff_id,omitempty"`
	Status          ConversationStatus `json:"status"`

	// Unread counters for each side. UnreadCountStaff is what the console badges.
	UnreadCountUser  int `json:"unread_count_user"`
	UnreadCountStaff int `json:"unread_count_staff"`

	LastMessageText *string    `json:"last_message_text,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignConversationRequest is the request to assign a conversation to a staff member.
type AssignConversationRequest struct {
	StaffID string `json:"staff_id"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}

// MarkReadResponse reports how many messages a mark-read call flipped.
type MarkReadResponse struct {
	ConversationID string `json:"conversation_id"`
	Updated        int64  `json:"updated"`
}
