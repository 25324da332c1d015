package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/graphetch/graphetch/internal/domain/auth"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTInsert = `
INSERT INTO refresh_tokens (user_id, token_hash, created_at, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id;`

	// FOR UPDATE locks the row for the duration of the surrounding tx so a
	// concurrent rotate/revoke of the same value serializes behind us.
	qRTFindForUpdate = `
SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, replaced_by
FROM refresh_tokens
WHERE token_hash = $1
FOR UPDATE;`

	// Both updates are guarded on revoked_at IS NULL: the revocation timestamp
	// and replacement pointer are settable exactly once.
	qRTMarkRotated = `
UPDATE refresh_tokens
SET revoked_at = $2, replaced_by = $3
WHERE id = $1 AND revoked_at IS NULL;`

	qRTMarkRevoked = `
UPDATE refresh_tokens
SET revoked_at = $2
WHERE id = $1 AND revoked_at IS NULL;`

	qRTByUser = `
SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, replaced_by
FROM refresh_tokens
WHERE user_id = $1
ORDER BY created_at, id;`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).
		QueryRow(ctx, qRTInsert, t.UserID, t.TokenHash, t.CreatedAt, t.ExpiresAt).
		Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// token_hash is globally unique; a collision means value
			// generation went badly wrong
			return ErrConflict
		}
		return fmt.Errorf("refresh insert: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) FindForUpdate(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	err := r.db.execQueryer(ctx).
		QueryRow(ctx, qRTFindForUpdate, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.ReplacedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("refresh find: %w", err)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) MarkRotated(ctx context.Context, id, replacedBy int64, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTMarkRotated, id, at, replacedBy)
	if err != nil {
		return fmt.Errorf("refresh rotate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenInactive
	}
	return nil
}

func (r *RefreshTokenRepo) MarkRevoked(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTMarkRevoked, id, at)
	if err != nil {
		return fmt.Errorf("refresh revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenInactive
	}
	return nil
}

func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID int64) ([]*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qRTByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("refresh list: %w", err)
	}
	defer rows.Close()

	var out []*auth.RefreshToken
	for rows.Next() {
		var t auth.RefreshToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.ReplacedBy); err != nil {
			return nil, fmt.Errorf("refresh scan: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
