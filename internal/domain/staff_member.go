package domain

import "time"

// StaffRole enumerates roster roles. RoleUser grants nothing beyond what a
// visitor can do and is the default for new profiles.
type StaffRole string

const (
	StaffRoleUser  StaffRole = "user"
	StaffRoleAgent StaffRole = "agent"
	StaffRoleAdmin StaffRole = "admin"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleUser, StaffRoleAgent, StaffRoleAdmin:
		return true
	}
	return false
}

// StaffProfile is a roster entry bound to a login credential.
type StaffProfile struct {
	ID           string
	UserID       string
	FullName     string
	Email        string
	PasswordHash string
	Role         StaffRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
