package engine

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"zenflow/internal/domain"
	"zenflow/internal/engine/auth"
	"zenflow/internal/payroll"
	"zenflow/internal/repo"
)

const avatarBase = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// AvatarURL is the generated avatar for a display name.
func AvatarURL(name string) string {
	return avatarBase + url.QueryEscape(name)
}

func (e Engine) ListUsers(ctx context.Context, req payroll.Requester) ([]domain.User, error) {
	if err := auth.Require(req.Role, auth.PermUserList); err != nil {
		return nil, err
	}
	return e.Repo.ListUsers(ctx)
}

// UserByEmail looks up a user without permission checks; the CLI uses it to
// pick the acting user.
func (e Engine) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return e.Repo.GetUserByEmail(ctx, email)
}

type UserCreateOptions struct {
	Name     string
	Email    string
	Role     domain.Role
	Password string
}

func (e Engine) CreateUser(ctx context.Context, req payroll.Requester, opts UserCreateOptions) (domain.User, error) {
	if err := auth.Require(req.Role, auth.PermUserCreate); err != nil {
		return domain.User{}, err
	}
	name := strings.TrimSpace(opts.Name)
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if name == "" {
		return domain.User{}, invalid("name is required")
	}
	if !strings.Contains(email, "@") {
		return domain.User{}, invalid("email %q is invalid", opts.Email)
	}
	if !opts.Role.Valid() {
		return domain.User{}, invalid("role %q is invalid; want one of %v", opts.Role, domain.Roles)
	}
	if len(opts.Password) < 6 {
		return domain.User{}, invalid("password must be at least 6 characters")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := HashPassword(opts.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         opts.Role,
		Avatar:       AvatarURL(name),
		PasswordHash: hash,
	}
	err = e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.InsertUser(ctx, tx, u)
	})
	if errors.Is(err, repo.ErrConflict) {
		return domain.User{}, ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, err
	}
	e.committed("users", u.ID, "create")
	return u, nil
}

// DeleteUser removes a user and their sessions. Tasks keep the dangling id.
func (e Engine) DeleteUser(ctx context.Context, req payroll.Requester, id string) error {
	if err := auth.Require(req.Role, auth.PermUserDelete); err != nil {
		return err
	}
	if id == req.ID {
		return ErrSelfDelete
	}
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.DeleteUser(ctx, tx, id)
	}); err != nil {
		return err
	}
	e.committed("users", id, "delete")
	return nil
}
