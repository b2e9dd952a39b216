// Package session provides the bearer-session store injected into the HTTP
// layer. Tokens are random, stored by SHA-256 hash, and carry the upstream
// user identity.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidSession reports an unknown, expired or revoked token.
var ErrInvalidSession = errors.New("invalid or expired session")

// User is the identity attached to a session.
type User struct {
	Username string `json:"username"`
}

// Store issues, validates and revokes bearer sessions.
type Store interface {
	Issue(ctx context.Context, user User, ttl time.Duration) (token string, err error)
	Validate(ctx context.Context, token string) (User, error)
	Revoke(ctx context.Context, token string) error
}

func newToken() string {
	raw := make([]byte, 32)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
