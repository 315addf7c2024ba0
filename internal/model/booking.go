package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is a visit reservation at a heritage site or for a guided tour.
type Booking struct {
	ID              string        `json:"id"`
	Reference       string        `json:"reference"`
	UserID          string        `json:"user_id"`
	CustomerName    string        `json:"customer_name,omitempty"`
	Module          string        `json:"module"`
	SiteID          string        `json:"site_id"`
	SiteName        string        `json:"site_name,omitempty"`
	VisitDate       time.Time     `json:"visit_date"`
	Guests          int           `json:"guests"`
	TotalAmount     float64       `json:"total_amount"`
	Currency        string        `json:"currency"`
	Status          BookingStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	HandledBy       *string       `json:"handled_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// BookingFilter narrows a booking listing.
type BookingFilter struct {
	Status BookingStatus
	Module string
	SiteID string
	From   *time.Time
	To     *time.Time
	Search string
	Page   Page
}

// RejectBookingRequest carries the mandatory reason for a rejection.
type RejectBookingRequest struct {
	Reason string `json:"reason"`
}
