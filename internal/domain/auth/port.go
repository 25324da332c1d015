package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenInactive = errors.New("refresh token is not active")
)

// RefreshTokenRepo persists refresh tokens. FindForUpdate locks the row when
// called inside a transaction; MarkRotated and MarkRevoked only succeed while
// the token has no revocation timestamp yet.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) error
	FindForUpdate(ctx context.Context, tokenHash string) (*RefreshToken, error)
	MarkRotated(ctx context.Context, id, replacedBy int64, at time.Time) error
	MarkRevoked(ctx context.Context, id int64, at time.Time) error
	ListByUser(ctx context.Context, userID int64) ([]*RefreshToken, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Auth lifecycle event types published to the event sink.
const (
	EventUserAuthenticated = "user.authenticated"
	EventTokenRotated      = "token.rotated"
	EventTokenRevoked      = "token.revoked"
	EventTokenReuse        = "token.reuse"
)

type Event struct {
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}
