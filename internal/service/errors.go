// Package service holds the business logic behind the admin console API.
package service

import (
	"errors"
	"fmt"

	"github.com/heritage-trails/admin-api/internal/store"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("session is invalid or expired")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDuplicate          = errors.New("already exists")
)

// ErrConversationClosed is returned when writing to a closed conversation.
var ErrConversationClosed = fmt.Errorf("%w: conversation is closed", ErrInvalidTransition)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// storeErr maps store.ErrNotFound to ErrNotFound and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, store.ErrDuplicate) {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
