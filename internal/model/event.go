package model

import (
	"encoding/json"
	"time"
)

// ChangeType is the kind of row change carried by a ChangeEvent.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Tables that publish change events.
const (
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableCallRequests  = "call_support_requests"
	TableBookings      = "bookings"
	TableFeedback      = "feedback"
)

// ChangeEvent is a row-level change notification. Record carries the full
// row after the change; Old is set for updates and deletes when known.
type ChangeEvent struct {
	ID         string          `json:"id"`
	Table      string          `json:"table"`
	Type       ChangeType      `json:"type"`
	Record     json.RawMessage `json:"record"`
	Old        json.RawMessage `json:"old,omitempty"`
	CommitTime time.Time       `json:"commit_time"`

	// Feed sequence (populated on read when the transport has one)
	Sequence uint64 `json:"sequence,omitempty"`
}

// Decode unmarshals the event record into v.
func (e ChangeEvent) Decode(v any) error {
	return json.Unmarshal(e.Record, v)
}
