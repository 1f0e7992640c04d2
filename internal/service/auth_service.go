package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/config"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates staff login and credential changes.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, staff repository.StaffRepository, tokens *auth.TokenManager) *AuthService {
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		staff:      staff,
		tokenMgr:   tokens,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login authenticates a roster member. The token names the credential only;
// the role is re-read from the roster on every request.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.StaffProfile, *domain.Session, error) {
	profile, err := s.staff.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(profile.UserID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return profile, &domain.Session{Token: token, UserID: profile.UserID, ExpiresAt: exp}, nil
}

// Me returns the roster entry for a credential.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.StaffProfile, error) {
	profile, err := s.staff.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("staff profile not found")
		}
		return nil, err
	}
	return profile, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("new password is too short", map[string]any{"min_length": minPasswordLength})
	}
	profile, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(profile.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.staff.UpdatePassword(ctx, profile.UserID, hash)
}
