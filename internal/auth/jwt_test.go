package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-secret")

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	raw, err := NewAccessToken(42, testSecret, 15*time.Minute, now)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	id, err := ParseAccessToken(raw, testSecret)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	raw, err := NewAccessToken(7, testSecret, 15*time.Minute, time.Now().UTC())
	require.NoError(t, err)

	_, err = ParseAccessToken(raw, []byte("some-other-secret"))
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessToken_Expired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	raw, err := NewAccessToken(7, testSecret, 15*time.Minute, past)
	require.NoError(t, err)

	_, err = ParseAccessToken(raw, testSecret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessToken_WrongIssuer(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseAccessToken(raw, testSecret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessToken_MissingExpiry(t *testing.T) {
	claims := jwt.RegisteredClaims{Issuer: Issuer, Subject: "7"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseAccessToken(raw, testSecret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessToken_UnsignedAlgRejected(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(raw, testSecret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	_, err := ParseAccessToken("not-a-jwt", testSecret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
