// Package session maps opaque tokens to user identities. A token is
// issued at login, looked up on every authenticated request, and
// destroyed at logout; tokens are never mutated.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// ErrTokenNotFound indicates the token is unknown to the directory,
// either never issued or already revoked.
var ErrTokenNotFound = errors.New("session: token not found")

// Directory is the session store contract. Multiple concurrent tokens
// per user are permitted; nothing invalidates older sessions on issue.
type Directory interface {
	// Issue creates and records a fresh token bound to the user.
	Issue(ctx context.Context, userID int64) (string, error)
	// Lookup resolves a token to the bound user.
	Lookup(ctx context.Context, token string) (int64, error)
	// Revoke destroys a token. Revoking an unknown token is an error,
	// not a no-op.
	Revoke(ctx context.Context, token string) error
}

// NewToken produces an opaque URL-safe token from 32 random bytes.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
