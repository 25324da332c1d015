// Package auth holds the session token primitives: minting and parsing of the
// short-lived access JWT and generation/hashing of opaque refresh values.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every access token and required on parse.
const Issuer = "graphetch"

var ErrTokenInvalid = errors.New("invalid token")

type AccessClaims struct {
	jwt.RegisteredClaims
}

// NewAccessToken mints an HS256 JWT whose subject is the local user id.
// The user id is the sole identity claim.
func NewAccessToken(userID int64, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAccessToken validates signature, algorithm, issuer and expiry, and
// returns the user id. Every failure collapses to ErrTokenInvalid.
func ParseAccessToken(raw string, secret []byte) (int64, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrTokenInvalid
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}
