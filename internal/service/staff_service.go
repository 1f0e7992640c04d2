package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/config"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const temporaryPasswordLength = 12

// StaffService manages the roster.
type StaffService struct {
	staff      repository.StaffRepository
	bcryptCost int
}

// StaffUpdateInput carries roster edits. Nil fields are left alone.
type StaffUpdateInput struct {
	FullName *string
	Role     *domain.StaffRole
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, staff repository.StaffRepository) *StaffService {
	return &StaffService{
		staff:      staff,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireStaffManager(actor *domain.StaffProfile) error {
	if !access.Can(access.FromStaff(actor), access.CapManageStaff) {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// List returns roster entries, newest first.
func (s *StaffService) List(ctx context.Context, actor *domain.StaffProfile, filter repository.StaffFilter) ([]domain.StaffProfile, error) {
	if err := requireStaffManager(actor); err != nil {
		return nil, err
	}
	for _, role := range filter.Roles {
		if !role.Valid() {
			return nil, apperrors.NewValidationError("unknown role filter", map[string]any{"role": string(role)})
		}
	}
	return s.staff.List(ctx, filter)
}

// Create adds a roster entry with the least privileged role and a generated
// temporary password. The password is only ever returned here.
func (s *StaffService) Create(ctx context.Context, actor *domain.StaffProfile, fullName, email string) (*domain.StaffProfile, string, error) {
	if err := requireStaffManager(actor); err != nil {
		return nil, "", err
	}
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, "", apperrors.NewValidationError("full name and email are required", nil)
	}

	password, err := auth.GenerateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	profile := &domain.StaffProfile{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.StaffRoleUser,
	}
	if err := s.staff.CreateWithCredential(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
		}
		return nil, "", apperrors.MapError(err)
	}
	return profile, password, nil
}

// Update changes a member's name or role. Admins cannot demote themselves,
// so the roster always keeps the admin performing the change.
func (s *StaffService) Update(ctx context.Context, actor *domain.StaffProfile, id string, input StaffUpdateInput) (*domain.StaffProfile, error) {
	if err := requireStaffManager(actor); err != nil {
		return nil, err
	}
	profile, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("full name cannot be empty", nil)
		}
		profile.FullName = name
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*input.Role)})
		}
		if profile.ID == actor.ID && *input.Role != profile.Role {
			return nil, apperrors.NewConflict("you cannot change your own role", map[string]any{"staff_id": profile.ID})
		}
		profile.Role = *input.Role
	}

	if err := s.staff.Update(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// Remove deletes the roster entry together with its login credential.
func (s *StaffService) Remove(ctx context.Context, actor *domain.StaffProfile, id string) error {
	if err := requireStaffManager(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperrors.NewConflict("you cannot remove yourself", map[string]any{"staff_id": id})
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.staff.DeleteWithCredential(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff member", map[string]any{"staff_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *StaffService) get(ctx context.Context, id string) (*domain.StaffProfile, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("staff member", map[string]any{"staff_id": id})
	}
	profile, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"staff_id": id})
		}
		return nil, err
	}
	return profile, nil
}
