package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "domain error passes through",
			err:        NewConflict("duplicate", nil),
			wantCode:   "CONFLICT",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "wrapped domain error is unwrapped",
			err:        fmt.Errorf("lookup: %w", NewNotFound("ticket", nil)),
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "no rows maps to not found",
			err:        fmt.Errorf("select: %w", pgx.ErrNoRows),
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown error is internal",
			err:        errors.New("boom"),
			wantCode:   "INTERNAL_ERROR",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestIsCode(t *testing.T) {
	err := NewUnprocessable("CONTEST_NOT_CLOSED", "ticket is not closed", nil)
	assert.True(t, IsCode(err, "CONTEST_NOT_CLOSED"))
	assert.False(t, IsCode(err, "CONFLICT"))
	assert.False(t, IsCode(errors.New("plain"), "CONFLICT"))
}
