package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"zenflow/internal/domain"
)

// HashToken returns a stable SHA-256 hex digest for a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// InsertSession stores a session. TokenHash must already contain the hashed value.
func (r Repo) InsertSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	if s.ID == "" {
		return errors.New("id required")
	}
	if s.UserID == "" {
		return errors.New("user_id required")
	}
	if s.TokenHash == "" {
		return errors.New("token_hash required")
	}
	_, err := r.exec(tx).ExecContext(ctx, `INSERT INTO sessions(id,user_id,token_hash,created_at,expires_at) VALUES (?,?,?,?,?)`,
		s.ID, s.UserID, s.TokenHash, s.CreatedAt, s.ExpiresAt)
	return mapConstraint(err)
}

// GetSessionByHash returns the live session for a hashed token. Sessions that
// expired at or before now are reported as ErrNotFound.
func (r Repo) GetSessionByHash(ctx context.Context, hash string, now int64) (domain.Session, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,user_id,token_hash,created_at,expires_at FROM sessions WHERE token_hash=? LIMIT 1`, hash)
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.CreatedAt, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return domain.Session{}, ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	if s.ExpiresAt <= now {
		return domain.Session{}, ErrNotFound
	}
	return s, nil
}

func (r Repo) DeleteSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry and reports how many went away.
func (r Repo) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at<=?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
