package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
	Staff  *domain.StaffProfile
	Role   access.Role
}

// Can reports whether the principal's roster role grants cap.
func (p *Principal) Can(cap access.Capability) bool {
	if p == nil {
		return access.Can(access.RoleNone, cap)
	}
	return access.Can(p.Role, cap)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.resolve(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional loads the principal when a valid token is present and otherwise
// lets the request through as an anonymous visitor.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) != "" {
		if principal, err := m.resolve(c); err == nil {
			c.Locals(principalKey, principal)
		}
	}
	return c.Next()
}

func (m *AuthMiddleware) resolve(c *fiber.Ctx) (*Principal, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	profile, err := m.staff.GetByUserID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("staff profile not found")
		}
		return nil, apperrors.MapError(err)
	}

	return &Principal{
		UserID: claims.Subject,
		Staff:  profile,
		Role:   access.FromStaff(profile),
	}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RoleFromContext returns the caller's role, RoleNone for visitors.
func RoleFromContext(c *fiber.Ctx) access.Role {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal.Role
	}
	return access.RoleNone
}
