package domain

import "time"

// SessionTTL is the fixed validity window of an issued session token.
const SessionTTL = 7 * 24 * time.Hour

// Session is the verified content of a session token.
type Session struct {
	AccountID string
	RoleName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
