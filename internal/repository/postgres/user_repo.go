package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/graphetch/graphetch/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (mail, google_id)
VALUES ($1, $2)
RETURNING id, mail, google_id, created_at, updated_at;`

	qUserByID = `
SELECT id, mail, google_id, created_at, updated_at
FROM users
WHERE id = $1;`

	qUserByGoogleID = `
SELECT id, mail, google_id, created_at, updated_at
FROM users
WHERE google_id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert, u.Mail, u.GoogleID), u); err != nil {
		if isUniqueViolation(err) {
			return user.ErrExists
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByGoogleID, googleID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Mail, &out.GoogleID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}
