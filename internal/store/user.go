package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const userColumns = `id, email, full_name, phone, role, language, active, push_token, password_hash,
	created_at, updated_at`

type userStore struct {
	db DBTX
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Role, &u.Language, &u.Active, &u.PushToken, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *userStore) List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	var w where
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		w.add("(full_name ILIKE ? OR email ILIKE ?)", like(filter.Search), like(filter.Search))
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM users`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	cond := w.String()
	limit := w.page(page.Limit, page.Offset)
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users`+cond+` ORDER BY created_at DESC, id`+limit, w.args...)
	if err != nil {
		return nil, 0, err
	}
	users, err := collectUsers(rows)
	return users, total, err
}

func (s *userStore) Get(ctx context.Context, id string) (*model.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`,
		strings.ToLower(strings.TrimSpace(email))))
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	row := s.db.QueryRow(ctx, `INSERT INTO users (email, full_name, phone, role, language, active, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		user.Email, user.FullName, user.Phone, user.Role, user.Language, user.Active, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		return err
	}
	*user = *created
	return nil
}

func (s *userStore) Update(ctx context.Context, user *model.User) error {
	row := s.db.QueryRow(ctx, `UPDATE users
		SET full_name = $2, phone = $3, role = $4, active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.FullName, user.Phone, user.Role, user.Active)
	updated, err := scanUser(row)
	if err != nil {
		return err
	}
	*user = *updated
	return nil
}

func (s *userStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) Audience(ctx context.Context, audience model.Audience, language string) ([]model.User, error) {
	var w where
	w.add("role = ?", model.RoleCustomer)
	w.add("active")
	switch audience {
	case model.AudiencePushTokens:
		w.add("push_token IS NOT NULL AND push_token <> ''")
	case model.AudienceLanguage:
		w.add("language = ?", language)
	}

	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}
