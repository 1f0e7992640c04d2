package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/api/validation"
	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

var validate = validation.New()

// bindJSON decodes the request body into dst and checks its validate tags.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validate.Struct(dst)
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffProfile, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
