package workflow

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

func TestCheckStaffTransitionAllowsAnyToAny(t *testing.T) {
	for _, from := range domain.TicketStatuses {
		for _, to := range domain.TicketStatuses {
			assert.NoError(t, CheckStaffTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheckStaffTransitionRejectsUnknownStatus(t *testing.T) {
	err := CheckStaffTransition(domain.TicketStatusOpen, "Resolvido")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, CodeInvalidStatus, domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
}

func TestInvalidStatusErrorListsAllowedStatuses(t *testing.T) {
	domainErr := apperrors.ToDomainError(InvalidStatusError("Concluído"))
	assert.Equal(t, CodeInvalidStatus, domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Equal(t, "Concluído", domainErr.Details["status"])
	assert.Equal(t, domain.TicketStatuses, domainErr.Details["allowed"])
}

func TestCheckContest(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.TicketStatus
		kind    domain.TicketType
		reopens int
		want    error
	}{
		{name: "closed criticism", status: domain.TicketStatusClosed, kind: domain.TicketTypeCriticism},
		{name: "closed complaint", status: domain.TicketStatusClosed, kind: domain.TicketTypeComplaint},
		{name: "closed suggestion", status: domain.TicketStatusClosed, kind: domain.TicketTypeSuggestion, want: ErrContestTypeNotAllowed},
		{name: "closed compliment", status: domain.TicketStatusClosed, kind: domain.TicketTypeCompliment, want: ErrContestTypeNotAllowed},
		{name: "closed criticism already reopened", status: domain.TicketStatusClosed, kind: domain.TicketTypeCriticism, reopens: 1, want: ErrContestAlreadyUsed},
		{name: "open criticism", status: domain.TicketStatusOpen, kind: domain.TicketTypeCriticism, want: ErrContestNotClosed},
		{name: "reopened complaint", status: domain.TicketStatusReopened, kind: domain.TicketTypeComplaint, reopens: 1, want: ErrContestNotClosed},
		{name: "waiting complaint", status: domain.TicketStatusWaiting, kind: domain.TicketTypeComplaint, want: ErrContestNotClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &domain.Ticket{Status: tt.status, Type: tt.kind, ReopenCount: tt.reopens}
			err := CheckContest(ticket)
			if tt.want == nil {
				assert.NoError(t, err)
				assert.True(t, CanContest(ticket))
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, CanContest(ticket))
		})
	}
}

func TestContestErrorCarriesSpecificReason(t *testing.T) {
	ticket := &domain.Ticket{ProtocolNumber: "OUV-20240101-ABC123", Status: domain.TicketStatusClosed, Type: domain.TicketTypeSuggestion}

	tests := []struct {
		err    error
		code   string
		status int
	}{
		{err: ErrContestNotClosed, code: CodeContestNotClosed, status: http.StatusUnprocessableEntity},
		{err: ErrContestTypeNotAllowed, code: CodeContestTypeNotAllowed, status: http.StatusUnprocessableEntity},
		{err: ErrContestAlreadyUsed, code: CodeContestAlreadyUsed, status: http.StatusConflict},
	}

	for _, tt := range tests {
		domainErr := apperrors.ToDomainError(ContestError(tt.err, ticket))
		assert.Equal(t, tt.code, domainErr.Code)
		assert.Equal(t, tt.status, domainErr.HTTPStatus)
		assert.Equal(t, "OUV-20240101-ABC123", domainErr.Details["protocol_number"])
	}
}

func TestStatusChangeDescription(t *testing.T) {
	assert.Equal(t, "Status alterado de Aberto para Fechado",
		StatusChangeDescription(domain.TicketStatusOpen, domain.TicketStatusClosed))
}
