// Package workflow holds the ticket lifecycle rules: which statuses exist,
// which staff edits are accepted and when a submitter may contest a closure.
package workflow

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

// Reason codes returned when a lifecycle rule refuses a request.
const (
	CodeInvalidStatus         = "INVALID_STATUS"
	CodeContestNotClosed      = "CONTEST_NOT_CLOSED"
	CodeContestTypeNotAllowed = "CONTEST_TYPE_NOT_ALLOWED"
	CodeContestAlreadyUsed    = "CONTEST_ALREADY_USED"
)

// MaxReopens caps transitions into Reaberto per ticket. Staff reopenings
// count too, so a ticket staff already reopened cannot be contested.
const MaxReopens = 1

var (
	ErrContestNotClosed      = errors.New("ticket is not closed")
	ErrContestTypeNotAllowed = errors.New("ticket type cannot be contested")
	ErrContestAlreadyUsed    = errors.New("ticket was already reopened")
)

// ContestableTypes are the ticket types a submitter may contest after closure.
var ContestableTypes = []domain.TicketType{
	domain.TicketTypeCriticism,
	domain.TicketTypeComplaint,
}

// ValidStatus reports whether s is one of the lifecycle statuses.
func ValidStatus(s domain.TicketStatus) bool {
	return s.Valid()
}

// CheckStaffTransition accepts any move between known statuses.
func CheckStaffTransition(from, to domain.TicketStatus) error {
	if !ValidStatus(to) {
		return InvalidStatusError(to)
	}
	if !ValidStatus(from) {
		return apperrors.NewDomainError(CodeInvalidStatus, "ticket has an unknown status", http.StatusConflict, map[string]any{
			"status": string(from),
		})
	}
	return nil
}

// InvalidStatusError rejects a requested status that is not in the lifecycle.
func InvalidStatusError(status domain.TicketStatus) error {
	return apperrors.NewDomainError(CodeInvalidStatus, "unknown ticket status", http.StatusBadRequest, map[string]any{
		"status":  string(status),
		"allowed": domain.TicketStatuses,
	})
}

// Contestable reports whether tickets of type t can ever be contested.
func Contestable(t domain.TicketType) bool {
	for _, candidate := range ContestableTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// CheckContest returns nil when the submitter may reopen the ticket, or the
// sentinel naming the first rule that refuses it.
func CheckContest(ticket *domain.Ticket) error {
	if ticket.Status != domain.TicketStatusClosed {
		return ErrContestNotClosed
	}
	if !Contestable(ticket.Type) {
		return ErrContestTypeNotAllowed
	}
	if ticket.ReopenCount >= MaxReopens {
		return ErrContestAlreadyUsed
	}
	return nil
}

// CanContest is CheckContest as a flag for views.
func CanContest(ticket *domain.Ticket) bool {
	return CheckContest(ticket) == nil
}

// ContestError maps a contest sentinel to the error rendered to the caller.
// Anything that is not a contest sentinel goes through the generic mapping.
func ContestError(err error, ticket *domain.Ticket) error {
	details := map[string]any{}
	if ticket != nil {
		details["protocol_number"] = ticket.ProtocolNumber
		details["status"] = string(ticket.Status)
		details["type"] = string(ticket.Type)
	}
	switch {
	case errors.Is(err, ErrContestNotClosed):
		return apperrors.NewUnprocessable(CodeContestNotClosed, "only closed tickets can be contested", details)
	case errors.Is(err, ErrContestTypeNotAllowed):
		return apperrors.NewUnprocessable(CodeContestTypeNotAllowed, "compliments and suggestions cannot be contested", details)
	case errors.Is(err, ErrContestAlreadyUsed):
		return apperrors.NewDomainError(CodeContestAlreadyUsed, "ticket was already reopened once", http.StatusConflict, details)
	}
	return apperrors.MapError(err)
}

// StatusChangeDescription is the history text for a status move.
func StatusChangeDescription(from, to domain.TicketStatus) string {
	return fmt.Sprintf("Status alterado de %s para %s", from, to)
}

// ContestDescription is the history text recorded when a submitter contests.
const ContestDescription = "Manifestação contestada pelo solicitante"
