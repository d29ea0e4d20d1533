// Package session holds the login sessions and OAuth state nonces issued by
// the auth flow. Both live in expiring key/value stores; a session is valid
// iff it is present and unexpired, so an expired session is indistinguishable
// from an absent one.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/NexusDevelopments/tradeupsite/internal/discord"
)

// Session is one authenticated login. Lost on restart when backed by the
// in-memory store, which is acceptable at an 8 hour lifetime.
type Session struct {
	Token     string       `json:"token"`
	User      discord.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store is the session storage abstraction. The memory implementation is the
// default; a Redis-backed one is substituted when an external cache is
// configured.
type Store interface {
	Get(ctx context.Context, token string) (*Session, bool)
	Put(ctx context.Context, s *Session)
	Delete(ctx context.Context, token string)
	SweepExpired(ctx context.Context)
}

// NewToken returns a random opaque token suitable for session ids and OAuth
// state nonces.
func NewToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: system entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
