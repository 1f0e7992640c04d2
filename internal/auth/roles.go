package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

// RequireCapability lets the request through only when the caller's roster
// role grants every listed capability. Visitors get 401, staff lacking the
// capability get 403. It must run after AuthMiddleware.Handle or Optional.
func RequireCapability(caps ...access.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := RoleFromContext(c)
		for _, cap := range caps {
			if access.Can(role, cap) {
				continue
			}
			if _, ok := PrincipalFromContext(c); !ok {
				return apperrors.NewUnauthorized("authentication required")
			}
			return apperrors.NewDomainError("FORBIDDEN", "insufficient role", fiber.StatusForbidden, map[string]any{
				"capability": string(cap),
				"role":       string(role),
			})
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated, whatever the role.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
