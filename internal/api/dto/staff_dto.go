package dto

import (
	"time"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries an issued access token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// StaffResponse is a roster entry.
type StaffResponse struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	FullName  string           `json:"full_name"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// MeResponse describes the caller and what the portal should offer them.
type MeResponse struct {
	Staff        StaffResponse `json:"staff"`
	Role         string        `json:"role"`
	Capabilities []string      `json:"capabilities"`
	NavTargets   []string      `json:"nav_targets"`
}

// CreateStaffRequest adds someone to the roster.
type CreateStaffRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

// CreateStaffResponse returns the new profile with its one-time password.
type CreateStaffResponse struct {
	Staff             StaffResponse `json:"staff"`
	TemporaryPassword string        `json:"temporary_password"`
}

// UpdateStaffRequest edits name and/or role.
type UpdateStaffRequest struct {
	FullName *string           `json:"full_name" validate:"omitempty,max=200"`
	Role     *domain.StaffRole `json:"role" validate:"omitempty,oneof=user agent admin"`
}
