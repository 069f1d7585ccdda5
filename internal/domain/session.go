package domain

import "time"

// Session represents an in-flight OAuth transaction, keyed by the random
// state token. It lives in a short-TTL keyed store and is consumed exactly
// once on callback; a missing, expired, or wrong-shop session fails closed.
type Session struct {
	Shop      string    `json:"shop"`
	State     string    `json:"state"`
	Scopes    []string  `json:"scopes"`
	ReturnURL string    `json:"return_url"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session's TTL has elapsed.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
