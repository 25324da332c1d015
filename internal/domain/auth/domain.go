package auth

import (
	"time"
)

// Identity is what the external identity provider asserts about a subject.
type Identity struct {
	Subject string // stable google subject id
	Email   string
}

// RefreshToken is one durable session credential. The raw value is never
// stored; TokenHash is sha256 of it. RevokedAt and ReplacedBy are settable
// exactly once; a token with RevokedAt set never becomes active again.
type RefreshToken struct {
	ID         int64
	UserID     int64
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *int64 // id of the successor token, set on rotation
}

func (t *RefreshToken) Revoked() bool { return t.RevokedAt != nil }

func (t *RefreshToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// Active reports whether the token may still be presented. Expiry is derived
// from the clock at read time; no write marks a token expired.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked() && !t.Expired(now)
}
