package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// refreshValueBytes gives 512 bits of entropy per refresh token.
const refreshValueBytes = 64

// NewRefreshValue returns a fresh opaque refresh token value.
func NewRefreshValue() (string, error) {
	b := make([]byte, refreshValueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashValue is the storage form of a refresh token value. Only hashes hit the
// database, so a leaked table does not leak presentable credentials.
func HashValue(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
