package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

type samplePayload struct {
	Email string  `json:"email" validate:"required,email"`
	Role  *string `json:"role,omitempty" validate:"omitempty,oneof=user agent admin"`
	Body  string  `json:"body" validate:"max=5"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	v := New()
	role := "owner"

	err := v.Struct(samplePayload{Email: "nope", Role: &role, Body: "too long"})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, "email", domainErr.Details["email"])
	assert.Equal(t, "oneof=user agent admin", domainErr.Details["role"])
	assert.Equal(t, "max=5", domainErr.Details["body"])
}

func TestStructAcceptsValidPayload(t *testing.T) {
	role := "agent"
	assert.NoError(t, New().Struct(samplePayload{Email: "a@example.com", Role: &role}))
	assert.NoError(t, New().Struct(&samplePayload{Email: "a@example.com"}))
}
