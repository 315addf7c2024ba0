package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

var _ = Describe("UserService", func() {
	var (
		ctx      context.Context
		users    *mockUserStore
		sessions *mockSessionStore
		svc      *service.UserService
		admin    *model.Session
		req      model.CreateStaffRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = &mockUserStore{}
		sessions = newMockSessionStore()
		svc = service.NewUserService(users, sessions, logger.Nop())
		admin = &model.Session{StaffID: "admin-1", Role: model.RoleAdmin}
		req = model.CreateStaffRequest{
			Email:           " New.Guide@Heritage.example ",
			FullName:        "New Guide",
			Role:            model.RoleStaff,
			Password:        "long-enough",
			ConfirmPassword: "long-enough",
		}
	})

	It("only lets admins create staff", func() {
		_, err := svc.CreateStaff(ctx, &model.Session{StaffID: "s", Role: model.RoleStaff}, req)
		Expect(err).To(MatchError(service.ErrForbidden))
	})

	It("creates an active staff account with a hashed password", func() {
		var created *model.User
		users.createFn = func(_ context.Context, u *model.User) error {
			u.ID = "user-7"
			created = u
			return nil
		}

		user, err := svc.CreateStaff(ctx, admin, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(user.ID).To(Equal("user-7"))
		Expect(created.Email).To(Equal("new.guide@heritage.example"))
		Expect(created.Active).To(BeTrue())
		Expect(service.CheckPassword(*created.PasswordHash, "long-enough")).To(BeTrue())
	})

	It("rejects an email that is already registered", func() {
		users.getByEmailFn = func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "u-1", Email: email}, nil
		}

		_, err := svc.CreateStaff(ctx, admin, req)

		var verr *service.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Field).To(Equal("email"))
	})

	It("revokes sessions of a deactivated account", func() {
		users.getFn = func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleStaff, Active: true}, nil
		}
		inactive := false

		_, err := svc.Update(ctx, admin, "staff-2", model.UpdateUserRequest{Active: &inactive})

		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.revoked).To(ConsistOf("staff-2"))
	})

	It("does not let an admin deactivate themselves", func() {
		users.getFn = func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleAdmin, Active: true}, nil
		}
		inactive := false

		_, err := svc.Update(ctx, admin, "admin-1", model.UpdateUserRequest{Active: &inactive})

		var verr *service.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
	})

	It("revokes the live sessions of an admin demoted to staff", func() {
		users.getFn = func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleAdmin, Active: true}, nil
		}
		Expect(sessions.Create(ctx, &model.Session{ID: "s2", StaffID: "admin-2", Role: model.RoleAdmin})).To(Succeed())
		staffRole := model.RoleStaff

		user, err := svc.Update(ctx, admin, "admin-2", model.UpdateUserRequest{Role: &staffRole})

		Expect(err).NotTo(HaveOccurred())
		Expect(user.Role).To(Equal(model.RoleStaff))
		_, err = sessions.Get(ctx, "s2")
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("keeps sessions when only the profile changes", func() {
		users.getFn = func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleStaff, Active: true}, nil
		}
		name := "Renamed Guide"

		_, err := svc.Update(ctx, admin, "staff-2", model.UpdateUserRequest{FullName: &name})

		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.revoked).To(BeEmpty())
	})
})
