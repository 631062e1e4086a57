package session

import "time"

// Token is one API bearer token. Only the SHA-256 digest is stored; the raw
// value is shown once at issue time.
type Token struct {
	ID         string     `json:"id"`
	UserID     int        `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token is past its expiry, if it has one.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
