package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository/memory"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

func newRoleApp(t *testing.T) (*fiber.App, *TokenManager, *memory.Repositories) {
	t.Helper()
	repos := memory.NewRepositories(time.Now)
	tokens := NewTokenManager("test-secret", 60)
	mw := NewAuthMiddleware(tokens, repos.Staff)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
	}})
	app.Get("/whoami", mw.Optional, func(c *fiber.Ctx) error {
		return c.SendString(string(RoleFromContext(c)))
	})
	app.Get("/queue", mw.Optional, RequireCapability(access.CapViewQueue), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tokens, repos
}

func callRole(t *testing.T, app *fiber.App, path, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestOptionalLoadsPrincipalWhenTokenIsValid(t *testing.T) {
	app, tokens, repos := newRoleApp(t)
	profile := &domain.StaffProfile{FullName: "Agente", Email: "agent@example.com", PasswordHash: "x", Role: domain.StaffRoleAgent}
	require.NoError(t, repos.Staff.CreateWithCredential(context.Background(), profile))
	token, _, err := tokens.GenerateToken(profile.UserID)
	require.NoError(t, err)

	status, role := callRole(t, app, "/whoami", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(access.RoleAgent), role)

	status, _ = callRole(t, app, "/queue", "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestOptionalTreatsBadCredentialsAsVisitor(t *testing.T) {
	app, tokens, _ := newRoleApp(t)
	orphan, _, err := tokens.GenerateToken("5b1e7c1d-2c2f-4c55-8c4b-5e0f6c1f0a11")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"none":       "",
		"garbage":    "Bearer not-a-token",
		"bad scheme": "Basic abc",
		"no profile": "Bearer " + orphan,
	} {
		t.Run(name, func(t *testing.T) {
			status, role := callRole(t, app, "/whoami", header)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, string(access.RoleNone), role)

			status, code := callRole(t, app, "/queue", header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHORIZED", code)
		})
	}
}

func TestRequireCapabilityForbidsLowerRole(t *testing.T) {
	app, tokens, repos := newRoleApp(t)
	profile := &domain.StaffProfile{FullName: "Membro", Email: "member@example.com", PasswordHash: "x", Role: domain.StaffRoleUser}
	require.NoError(t, repos.Staff.CreateWithCredential(context.Background(), profile))
	token, _, err := tokens.GenerateToken(profile.UserID)
	require.NoError(t, err)

	status, body := callRole(t, app, "/queue", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body)
}
