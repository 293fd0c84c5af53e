package model

import "time"

// SessionSource tells how a session was established.
type SessionSource string

const (
	SessionSourceToken    SessionSource = "token"
	SessionSourceProvider SessionSource = "provider"
	SessionSourceDev      SessionSource = "dev"
)

// Session represents the authenticated session of a request
type Session struct {
	User      *User         `json:"user"`
	Source    SessionSource `json:"source"`
	ExpiresAt time.Time     `json:"expires_at,omitempty"`
}

// IsExpired checks if the session has expired. Sessions without a known
// expiry never expire locally.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// RemainingTTL returns the remaining time until the session expires
func (s *Session) RemainingTTL() time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return time.Until(s.ExpiresAt)
}
