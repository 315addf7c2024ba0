package model

import (
	"time"
)

// SenderRole tags who authored a message.
type SenderRole string

const (
	SenderUser   SenderRole = "user"
	SenderStaff  SenderRole = "staff"
	SenderSystem SenderRole = "system"
)

// Message is one entry in a conversation. Only the read flag and read
// timestamp ever change after insert.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderRole     SenderRole `json:"sender_role"`
	Content        string     `json:"content"`
	AttachmentURL  *string    `json:"attachment_url,omitempty"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SendMessageRequest is the request to send a staff message.
type SendMessageRequest struct {
	Content       string  `json:"content"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}

// SendMessageResponse is the response after sending a message.
type SendMessageResponse struct {
	Message *Message `json:"message"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}
