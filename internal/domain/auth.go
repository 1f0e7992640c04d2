package domain

import "time"

// Session describes an issued staff access token.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
