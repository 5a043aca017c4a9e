package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// DefaultTTL is the default session duration.
const DefaultTTL = 7 * 24 * time.Hour

// Session is an authenticated identity bound to an opaque token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	IsGuest   bool      `json:"is_guest"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore persists sessions keyed by token.
type SessionStore interface {
	// Get returns nil, nil when the session does not exist or has expired.
	Get(ctx context.Context, token string) (*Session, error)
	Set(ctx context.Context, session *Session) error
	Delete(ctx context.Context, token string) error
}

// GenerateToken creates a cryptographically secure random session token.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
