package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"zenflow/internal/domain"
	"zenflow/internal/repo"
)

// TokenSigner turns a new session into the bearer token handed to the client.
type TokenSigner func(s domain.Session, u domain.User) (string, error)

type LoginOptions struct {
	Email    string
	Password string
	Sign     TokenSigner
}

type LoginResult struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
	User    domain.User    `json:"user"`
}

// Login checks credentials and opens a session. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (e Engine) Login(ctx context.Context, opts LoginOptions) (LoginResult, error) {
	email := strings.TrimSpace(opts.Email)
	if email == "" || opts.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(opts.Password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := e.now()
	ttl := 720 * time.Hour
	if e.Config != nil && e.Config.Auth.SessionTTL.Duration > 0 {
		ttl = e.Config.Auth.SessionTTL.Duration
	}
	s := domain.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
	token, err := e.signSession(s, u, opts.Sign)
	if err != nil {
		return LoginResult{}, err
	}
	s.TokenHash = repo.HashToken(token)
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.InsertSession(ctx, tx, s)
	}); err != nil {
		return LoginResult{}, err
	}
	e.logger().Info("login", zap.String("user_id", u.ID), zap.String("session_id", s.ID))
	return LoginResult{Token: token, Session: s, User: u}, nil
}

func (e Engine) signSession(s domain.Session, u domain.User, sign TokenSigner) (string, error) {
	if sign != nil {
		return sign(s, u)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Authenticate resolves a bearer token to its live session and user.
func (e Engine) Authenticate(ctx context.Context, token string) (domain.User, domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.User{}, domain.Session{}, ErrInvalidSession
	}
	s, err := e.Repo.GetSessionByHash(ctx, repo.HashToken(token), e.nowMillis())
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, domain.Session{}, ErrInvalidSession
	}
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	u, err := e.Repo.GetUser(ctx, s.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, domain.Session{}, ErrInvalidSession
	}
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	return u, s, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (e Engine) Logout(ctx context.Context, token string) error {
	s, err := e.Repo.GetSessionByHash(ctx, repo.HashToken(token), e.nowMillis())
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteSession(ctx, s.ID); err != nil {
		return err
	}
	e.logger().Info("logout", zap.String("user_id", s.UserID), zap.String("session_id", s.ID))
	return nil
}

// PruneSessions deletes expired sessions.
func (e Engine) PruneSessions(ctx context.Context) (int64, error) {
	return e.Repo.DeleteExpiredSessions(ctx, e.nowMillis())
}

// HashPassword returns the bcrypt hash stored for a credential.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
