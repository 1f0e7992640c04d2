package domain

import "time"

// PendingEmail is a persisted outgoing ticket email. Delivery is attempted
// right away and retried by the worker until it succeeds or runs out of attempts.
type PendingEmail struct {
	ID          string
	Recipient   string
	Name        *string
	Subject     string
	HTMLBody    string
	Protocol    string
	Status      TicketStatus
	Attempts    int
	LastError   *string
	Sent        bool
	RequestedAt time.Time
	SentAt      *time.Time
}

// ContentSetting is a key/value entry for public portal copy.
type ContentSetting struct {
	ID          string
	Key         string
	Value       string
	Description *string
	UpdatedAt   time.Time
}
