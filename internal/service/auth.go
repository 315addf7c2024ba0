package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

const minPasswordLength = 8

// bcrypt rejects longer input.
const maxPasswordBytes = 72

// Claims are the access token claims. The token only names the session;
// the session itself lives in the session store and can be revoked.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string         `json:"sid"`
	Role      model.UserRole `json:"role"`
}

// AuthService handles staff login and session validation.
type AuthService struct {
	users    store.UserStore
	sessions store.SessionStore
	secret   []byte
	lifetime time.Duration
	logger   *logger.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users store.UserStore, sessions store.SessionStore, secret string, lifetime time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		secret:   []byte(secret),
		lifetime: lifetime,
		logger:   log.Named("auth"),
	}
}

// Login verifies staff credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if user.Role != model.RoleStaff && user.Role != model.RoleAdmin {
		s.logger.Warn("login attempt by non-staff account", zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == nil || !CheckPassword(*user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		StaffID:   user.ID,
		Email:     user.Email,
		Name:      user.FullName,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	token, err := s.issueToken(session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff logged in",
		zap.String("staff_id", user.ID),
		zap.String("session_id", session.ID),
	)

	return &model.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   session.ExpiresAt,
		Staff:       user,
	}, nil
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, session *model.Session) error {
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Authenticate validates an access token and returns its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session.StaffID != claims.Subject || time.Now().After(session.ExpiresAt) {
		return nil, ErrUnauthorized
	}
	return session, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, session *model.Session, req model.ChangePasswordRequest) error {
	if err := validatePassword("new_password", req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}

	user, err := s.users.Get(ctx, session.StaffID)
	if err != nil {
		return storeErr("loading user", err)
	}
	if user.PasswordHash == nil || !CheckPassword(*user.PasswordHash, req.CurrentPassword) {
		return invalid("current_password", "is incorrect")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return storeErr("storing password", err)
	}

	if err := s.sessions.DeleteOthersForStaff(ctx, user.ID, session.ID); err != nil {
		s.logger.Warn("failed to revoke other sessions", zap.String("staff_id", user.ID), zap.Error(err))
	}

	s.logger.Info("password changed", zap.String("staff_id", user.ID))
	return nil
}

func (s *AuthService) issueToken(session *model.Session) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.StaffID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		SessionID: session.ID,
		Role:      session.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// HashPassword hashes password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validatePassword(field, password, confirm string) error {
	if len(password) < minPasswordLength {
		return invalid(field, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return invalid(field, fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if password != confirm {
		return invalid("confirm_password", "does not match")
	}
	return nil
}
