// Package auth holds the client-side credential accessor. The mobile app
// persists a bearer token after login; the chat core only ever asks "what is
// the current token", so the accessor is a one-method interface with a
// swappable backing.
package auth

import (
	"os"
	"sync"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the current bearer credential. An empty string means no
// credential is stored; the connection manager treats that as a deliberate
// skip, not an error.
type TokenSource interface {
	Token() string
}

// MemoryTokenStore is a concurrency-safe in-memory TokenSource. The CLI seeds
// it from the environment or from a guest-token request at startup.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

// FromEnv builds a store seeded from CHAT_TOKEN.
func FromEnv() *MemoryTokenStore {
	return NewMemoryTokenStore(os.Getenv("CHAT_TOKEN"))
}

func (s *MemoryTokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryTokenStore) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// SenderIDFromToken extracts the authenticated user id from the bearer token
// claims without verifying the signature. The client is not the party that
// trusts the token, it only needs the id to stamp outbound messages; the
// backend re-validates on every request. Returns "" when the token is absent
// or unparseable.
func SenderIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"customer_id", "user_id", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
