package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("google subject already registered")
)

type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*User, error)
}
