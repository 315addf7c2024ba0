package service_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

var _ = Describe("AuthService", func() {
	const secret = "test-secret"

	var (
		ctx      context.Context
		users    *mockUserStore
		sessions *mockSessionStore
		svc      *service.AuthService
		staff    *model.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		hash, err := service.HashPassword("correct-horse")
		Expect(err).NotTo(HaveOccurred())

		staff = &model.User{
			ID:           "staff-1",
			Email:        "guide@heritage.example",
			FullName:     "Amina Guide",
			Role:         model.RoleStaff,
			Active:       true,
			PasswordHash: &hash,
		}
		users = &mockUserStore{
			getByEmailFn: func(_ context.Context, email string) (*model.User, error) {
				Expect(email).To(Equal("guide@heritage.example"))
				return staff, nil
			},
			getFn: func(_ context.Context, _ string) (*model.User, error) {
				return staff, nil
			},
		}
		sessions = newMockSessionStore()
		svc = service.NewAuthService(users, sessions, secret, time.Hour, logger.Nop())
	})

	It("issues a token whose session authenticates", func() {
		resp, err := svc.Login(ctx, "guide@heritage.example", "correct-horse")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.TokenType).To(Equal("Bearer"))
		Expect(resp.Staff.ID).To(Equal("staff-1"))

		session, err := svc.Authenticate(ctx, resp.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.StaffID).To(Equal("staff-1"))
		Expect(session.Role).To(Equal(model.RoleStaff))
	})

	It("rejects a wrong password", func() {
		_, err := svc.Login(ctx, "guide@heritage.example", "wrong")
		Expect(err).To(MatchError(service.ErrInvalidCredentials))
	})

	It("rejects customer accounts", func() {
		staff.Role = model.RoleCustomer
		_, err := svc.Login(ctx, "guide@heritage.example", "correct-horse")
		Expect(err).To(MatchError(service.ErrInvalidCredentials))
	})

	It("rejects disabled accounts", func() {
		staff.Active = false
		_, err := svc.Login(ctx, "guide@heritage.example", "correct-horse")
		Expect(err).To(MatchError(service.ErrAccountDisabled))
	})

	It("stops authenticating after logout", func() {
		resp, err := svc.Login(ctx, "guide@heritage.example", "correct-horse")
		Expect(err).NotTo(HaveOccurred())
		session, err := svc.Authenticate(ctx, resp.AccessToken)
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.Logout(ctx, session)).To(Succeed())

		_, err = svc.Authenticate(ctx, resp.AccessToken)
		Expect(err).To(MatchError(service.ErrUnauthorized))
	})

	It("rejects tokens signed with another key", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "staff-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			SessionID: "sess-1",
		}).SignedString([]byte("other-secret"))
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Authenticate(ctx, token)
		Expect(err).To(MatchError(service.ErrUnauthorized))
	})

	Describe("ChangePassword", func() {
		var session *model.Session

		BeforeEach(func() {
			session = &model.Session{ID: "sess-1", StaffID: "staff-1", Role: model.RoleStaff}
		})

		It("rejects a mismatched confirmation", func() {
			err := svc.ChangePassword(ctx, session, model.ChangePasswordRequest{
				CurrentPassword: "correct-horse",
				NewPassword:     "battery-staple",
				ConfirmPassword: "battery-stapel",
			})

			var verr *service.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("confirm_password"))
		})

		It("rejects short passwords", func() {
			err := svc.ChangePassword(ctx, session, model.ChangePasswordRequest{
				CurrentPassword: "correct-horse",
				NewPassword:     "short",
				ConfirmPassword: "short",
			})

			var verr *service.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("new_password"))
		})

		It("stores a new bcrypt hash", func() {
			var stored string
			users.setPasswordHashFn = func(_ context.Context, id, hash string) error {
				Expect(id).To(Equal("staff-1"))
				stored = hash
				return nil
			}

			err := svc.ChangePassword(ctx, session, model.ChangePasswordRequest{
				CurrentPassword: "correct-horse",
				NewPassword:     "battery-staple",
				ConfirmPassword: "battery-staple",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(service.CheckPassword(stored, "battery-staple")).To(BeTrue())
		})

		It("signs out every other session but keeps the caller's", func() {
			Expect(sessions.Create(ctx, &model.Session{ID: "sess-1", StaffID: "staff-1", Role: model.RoleStaff})).To(Succeed())
			Expect(sessions.Create(ctx, &model.Session{ID: "sess-2", StaffID: "staff-1", Role: model.RoleStaff})).To(Succeed())
			Expect(sessions.Create(ctx, &model.Session{ID: "sess-9", StaffID: "staff-9", Role: model.RoleStaff})).To(Succeed())

			err := svc.ChangePassword(ctx, session, model.ChangePasswordRequest{
				CurrentPassword: "correct-horse",
				NewPassword:     "battery-staple",
				ConfirmPassword: "battery-staple",
			})

			Expect(err).NotTo(HaveOccurred())
			_, err = sessions.Get(ctx, "sess-1")
			Expect(err).NotTo(HaveOccurred())
			_, err = sessions.Get(ctx, "sess-2")
			Expect(err).To(MatchError(store.ErrNotFound))
			_, err = sessions.Get(ctx, "sess-9")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects passwords longer than bcrypt accepts as a field error", func() {
			long := strings.Repeat("a", 73)

			err := svc.ChangePassword(ctx, session, model.ChangePasswordRequest{
				CurrentPassword: "correct-horse",
				NewPassword:     long,
				ConfirmPassword: long,
			})

			var verr *service.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("new_password"))
		})
	})
})
