package model

import "time"

// Session identifies the staff member behind a request. It is passed
// explicitly to every service call that attributes an action to staff.
type Session struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staff_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// LoginRequest is the request body for staff login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token for a new session.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Staff       *User     `json:"staff"`
}

// ChangePasswordRequest is the request to change the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}
