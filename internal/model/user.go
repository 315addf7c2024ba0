package model

import "time"

// UserRole is the role of an account on the platform.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleStaff    UserRole = "staff"
	RoleAdmin    UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User is a platform account: a tourist using the mobile app or a staff member.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Phone        *string   `json:"phone,omitempty"`
	Role         UserRole  `json:"role"`
	Language     string    `json:"language"`
	Active       bool      `json:"active"`
	PushToken    *string   `json:"-"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Role   UserRole
	Search string
	Active *bool
	Page   Page
}

// CreateStaffRequest is the request to provision a staff account.
type CreateStaffRequest struct {
	Email           string   `json:"email"`
	FullName        string   `json:"full_name"`
	Phone           *string  `json:"phone,omitempty"`
	Role            UserRole `json:"role"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
}

// UpdateUserRequest is a partial update of a user.
type UpdateUserRequest struct {
	FullName *string   `json:"full_name,omitempty"`
	Phone    *string   `json:"phone,omitempty"`
	Role     *UserRole `json:"role,omitempty"`
	Active   *bool     `json:"active,omitempty"`
}

// ResetPasswordRequest is the admin request to set a new password for a user.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}
