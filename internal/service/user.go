package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// UserService manages customer and staff accounts.
type UserService struct {
	users    store.UserStore
	sessions store.SessionStore
	logger   *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(users store.UserStore, sessions store.SessionStore, log *logger.Logger) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		logger:   log.Named("users"),
	}
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, filter model.UserFilter) (*model.ListResponse[model.User], error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, invalid("role", "unknown role")
	}
	filter.Page = filter.Page.Normalize()

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return model.NewListResponse(users, total, filter.Page), nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading user", err)
	}
	return user, nil
}

// CreateStaff provisions a staff or admin account. Admin only.
func (s *UserService) CreateStaff(ctx context.Context, session *model.Session, req model.CreateStaffRequest) (*model.User, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "must be a valid email address")
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, invalid("full_name", "is required")
	}
	if req.Role != model.RoleStaff && req.Role != model.RoleAdmin {
		return nil, invalid("role", "must be staff or admin")
	}
	if err := validatePassword("password", req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, invalid("email", "is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		FullName:     name,
		Phone:        req.Phone,
		Role:         req.Role,
		Language:     "en",
		Active:       true,
		PasswordHash: &hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeErr("creating user", err)
	}

	s.logger.Info("staff account created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", session.StaffID),
	)
	return user, nil
}

// Update changes profile, role or active flag. Admin only; admins cannot
// demote or deactivate themselves.
func (s *UserService) Update(ctx context.Context, session *model.Session, id string, req model.UpdateUserRequest) (*model.User, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading user", err)
	}
	prevRole := user.Role

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, invalid("full_name", "is required")
		}
		user.FullName = name
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, invalid("role", "unknown role")
		}
		if id == session.StaffID && *req.Role != model.RoleAdmin {
			return nil, invalid("role", "cannot demote your own account")
		}
		user.Role = *req.Role
	}
	if req.Active != nil {
		if id == session.StaffID && !*req.Active {
			return nil, invalid("active", "cannot deactivate your own account")
		}
		user.Active = *req.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr("updating user", err)
	}

	// Sessions carry the role they were issued with.
	if !user.Active || user.Role != prevRole {
		s.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

// ResetPassword sets a new password for a staff account and revokes its
// sessions. Admin only.
func (s *UserService) ResetPassword(ctx context.Context, session *model.Session, id string, req model.ResetPasswordRequest) error {
	if !session.IsAdmin() {
		return ErrForbidden
	}
	if err := validatePassword("password", req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, id, hash); err != nil {
		return storeErr("storing password", err)
	}

	s.revokeSessions(ctx, id)
	s.logger.Info("password reset", zap.String("user_id", id), zap.String("reset_by", session.StaffID))
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, staffID string) {
	if err := s.sessions.DeleteForStaff(ctx, staffID); err != nil {
		s.logger.Warn("failed to revoke sessions", zap.String("staff_id", staffID), zap.Error(err))
	}
}
