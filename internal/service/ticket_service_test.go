package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	"github.com/spec-kit/ouvidoria-service/internal/workflow"
)

func TestSubmitIdentifiedTicket(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(email OutgoingEmail) bool {
		return email.To == "maria@example.com" && email.Subject == confirmationSubject
	})).Return(nil).Once()
	f := newFixture(t, mailer)

	ticket := f.submitIdentified(t, domain.TicketTypeComplaint)

	assert.Regexp(t, `^OUV-20240101-[0-9A-F]{6}$`, ticket.ProtocolNumber)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, 0, ticket.ReopenCount)
	assert.Equal(t, time.Date(2024, 1, 19, 10, 0, 0, 0, saoPaulo(t)), ticket.DueDate)
	require.NotNil(t, ticket.Email)

	history, err := f.repos.History.ListByTicket(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryActionCreated, history[0].ActionType)

	emails, err := f.outbox.List(context.Background(), false, 0)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.True(t, emails[0].Sent)
	assert.Contains(t, emails[0].HTMLBody, "Prezado(a) Maria Souza")
	assert.Contains(t, emails[0].HTMLBody, ticket.ProtocolNumber)
	mailer.AssertExpectations(t)
}

func TestSubmitAnonymousDiscardsIdentity(t *testing.T) {
	mailer := &mockMailer{}
	f := newFixture(t, mailer)

	ticket, err := f.tickets.Submit(context.Background(), TicketSubmitInput{
		Type:              domain.TicketTypeCriticism,
		IsAnonymous:       true,
		FullName:          "Should Vanish",
		WhatsappContact:   "123",
		Email:             "ghost@example.com",
		EmailConfirmation: "ghost@example.com",
		Campus:            domain.CampusOnline,
		Description:       "Sem identificação",
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.FullName)
	assert.Nil(t, ticket.WhatsappContact)
	assert.Nil(t, ticket.Email)
	assert.Equal(t, time.Date(2024, 2, 9, 10, 0, 0, 0, saoPaulo(t)), ticket.DueDate)

	stored, err := f.repos.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Email)

	emails, err := f.outbox.List(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Empty(t, emails)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name  string
		input TicketSubmitInput
		field string
	}{
		{
			name: "email confirmation mismatch",
			input: TicketSubmitInput{
				Type: domain.TicketTypeSuggestion, FullName: "Ana", WhatsappContact: "1",
				Email: "ana@example.com", EmailConfirmation: "ana@example.org",
				Campus: "Barra", Description: "x",
			},
			field: "email_confirmation",
		},
		{
			name: "identified without name",
			input: TicketSubmitInput{
				Type: domain.TicketTypeSuggestion, WhatsappContact: "1",
				Email: "ana@example.com", EmailConfirmation: "ana@example.com",
				Campus: "Barra", Description: "x",
			},
			field: "full_name",
		},
		{
			name:  "missing description",
			input: TicketSubmitInput{Type: domain.TicketTypeSuggestion, IsAnonymous: true, Campus: "Barra", Description: "   "},
			field: "description",
		},
		{
			name:  "unknown campus",
			input: TicketSubmitInput{Type: domain.TicketTypeSuggestion, IsAnonymous: true, Campus: "Lisboa", Description: "x"},
			field: "campus",
		},
		{
			name:  "unknown type",
			input: TicketSubmitInput{Type: "Pedido", IsAnonymous: true, Campus: "Barra", Description: "x"},
			field: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tickets.Submit(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, "VALIDATION_FAILED", errCode(err))
			assert.Contains(t, errDetails(err), tt.field)
		})
	}
}

func TestLookupNormalizesProtocolAndHidesIdentity(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	anonymous := f.submitAnonymous(t, domain.TicketTypeComplaint)
	identified := f.submitIdentified(t, domain.TicketTypeComplaint)

	_, err := f.tickets.AddNote(context.Background(), agent, anonymous.ID, "nota interna")
	require.NoError(t, err)

	view, err := f.tickets.Lookup(context.Background(), "  "+strings.ToLower(anonymous.ProtocolNumber)+" ")
	require.NoError(t, err)
	assert.Equal(t, anonymous.ProtocolNumber, view.ProtocolNumber)
	assert.Nil(t, view.FullName)
	require.Len(t, view.History, 1)
	assert.Equal(t, domain.HistoryActionCreated, view.History[0].ActionType)
	assert.Equal(t, 30, view.SLA.LimitDays)

	view, err = f.tickets.Lookup(context.Background(), identified.ProtocolNumber)
	require.NoError(t, err)
	require.NotNil(t, view.FullName)
	assert.Equal(t, "Maria Souza", *view.FullName)
	assert.False(t, view.CanContest)
}

func TestLookupErrors(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.tickets.Lookup(context.Background(), "OUV-20240101-ABCDEF")
	assert.Equal(t, "NOT_FOUND", errCode(err))
	assert.Equal(t, http.StatusNotFound, errStatus(err))

	_, err = f.tickets.Lookup(context.Background(), "   ")
	assert.Equal(t, "VALIDATION_FAILED", errCode(err))
}

func TestContestLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitAnonymous(t, domain.TicketTypeComplaint)

	_, err := f.tickets.Contest(context.Background(), ticket.ProtocolNumber)
	assert.Equal(t, workflow.CodeContestNotClosed, errCode(err))
	assert.Equal(t, http.StatusUnprocessableEntity, errStatus(err))

	f.setStatus(t, agent, ticket.ID, domain.TicketStatusClosed)
	view, err := f.tickets.Contest(context.Background(), ticket.ProtocolNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReopened, view.Status)
	assert.Equal(t, 1, view.ReopenCount)
	assert.False(t, view.CanContest)

	last := view.History[len(view.History)-1]
	assert.Equal(t, domain.HistoryActionStatusChange, last.ActionType)
	require.NotNil(t, last.OldValue)
	require.NotNil(t, last.NewValue)
	assert.Equal(t, string(domain.TicketStatusClosed), *last.OldValue)
	assert.Equal(t, string(domain.TicketStatusReopened), *last.NewValue)
	assert.Nil(t, last.ActorID)

	f.setStatus(t, agent, ticket.ID, domain.TicketStatusClosed)
	_, err = f.tickets.Contest(context.Background(), ticket.ProtocolNumber)
	assert.Equal(t, workflow.CodeContestAlreadyUsed, errCode(err))
	assert.Equal(t, http.StatusConflict, errStatus(err))

	stored, err := f.repos.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	assert.Equal(t, 1, stored.ReopenCount)
}

func TestContestRejectsComplimentsAndSuggestions(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")

	for _, ticketType := range []domain.TicketType{domain.TicketTypeCompliment, domain.TicketTypeSuggestion} {
		ticket := f.submitAnonymous(t, ticketType)
		f.setStatus(t, agent, ticket.ID, domain.TicketStatusClosed)

		_, err := f.tickets.Contest(context.Background(), ticket.ProtocolNumber)
		assert.Equal(t, workflow.CodeContestTypeNotAllowed, errCode(err), string(ticketType))
	}
}

func TestConcurrentContestsReopenOnce(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitAnonymous(t, domain.TicketTypeCriticism)
	f.setStatus(t, agent, ticket.ID, domain.TicketStatusClosed)

	var wins, alreadyUsed, notClosed int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tickets.Contest(context.Background(), ticket.ProtocolNumber)
			switch errCode(err) {
			case "":
				atomic.AddInt32(&wins, 1)
			case workflow.CodeContestAlreadyUsed:
				atomic.AddInt32(&alreadyUsed, 1)
			case workflow.CodeContestNotClosed:
				atomic.AddInt32(&notClosed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(15), alreadyUsed+notClosed)

	history, err := f.repos.History.ListByTicket(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	reopened := 0
	for _, entry := range history {
		if entry.NewValue != nil && *entry.NewValue == string(domain.TicketStatusReopened) {
			reopened++
		}
	}
	assert.Equal(t, 1, reopened)
}

func TestUpdateByStaffNotifiesAndSurvivesMailerFailure(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(email OutgoingEmail) bool {
		return email.Subject == confirmationSubject
	})).Return(nil)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(email OutgoingEmail) bool {
		return email.Subject != confirmationSubject
	})).Return(errors.New("smtp down"))
	f := newFixture(t, mailer)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitIdentified(t, domain.TicketTypeCriticism)

	status := domain.TicketStatusInProgress
	summary := "  Conversamos com a liderança  "
	updated, err := f.tickets.UpdateByStaff(context.Background(), agent, ticket.ID, TicketStaffUpdateInput{
		Status:            &status,
		ResolutionSummary: &summary,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	require.NotNil(t, updated.ResolutionSummary)
	assert.Equal(t, "Conversamos com a liderança", *updated.ResolutionSummary)

	history, err := f.repos.History.ListByTicket(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.HistoryActionStatusChange, history[1].ActionType)
	assert.Equal(t, "Status alterado de Aberto para Em andamento", history[1].Description)
	require.NotNil(t, history[1].ActorID)
	assert.Equal(t, agent.ID, *history[1].ActorID)
	assert.Equal(t, domain.HistoryActionUpdated, history[2].ActionType)

	f.outbox.Wait()
	unsent, err := f.outbox.List(context.Background(), true, 0)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, updateSubject(ticket.ProtocolNumber), unsent[0].Subject)
	assert.Equal(t, 1, unsent[0].Attempts)
	require.NotNil(t, unsent[0].LastError)
	assert.Equal(t, "smtp down", *unsent[0].LastError)
}

func TestUpdateByStaffDoesNotWaitForMailer(t *testing.T) {
	release := make(chan time.Time)
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(email OutgoingEmail) bool {
		return email.Subject == confirmationSubject
	})).Return(nil)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(email OutgoingEmail) bool {
		return email.Subject != confirmationSubject
	})).WaitUntil(release).Return(nil)
	f := newFixture(t, mailer)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitIdentified(t, domain.TicketTypeComplaint)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		status := domain.TicketStatusInProgress
		_, err := f.tickets.UpdateByStaff(ctx, agent, ticket.ID, TicketStaffUpdateInput{Status: &status})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("status update blocked on the mailer")
	}
	cancel()

	unsent, err := f.outbox.List(context.Background(), true, 0)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, updateSubject(ticket.ProtocolNumber), unsent[0].Subject)

	delivered, failed, err := f.outbox.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered+failed)

	close(release)
	f.outbox.Wait()
	unsent, err = f.outbox.List(context.Background(), true, 0)
	require.NoError(t, err)
	assert.Empty(t, unsent)
	mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestUpdateByStaffSameStatusDoesNotNotify(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	f := newFixture(t, mailer)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitIdentified(t, domain.TicketTypeCriticism)

	f.setStatus(t, agent, ticket.ID, domain.TicketStatusOpen)

	f.outbox.Wait()
	mailer.AssertNumberOfCalls(t, "Send", 1)
	history, err := f.repos.History.ListByTicket(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateByStaffRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitAnonymous(t, domain.TicketTypeCriticism)

	status := domain.TicketStatus("Concluído")
	_, err := f.tickets.UpdateByStaff(context.Background(), agent, ticket.ID, TicketStaffUpdateInput{Status: &status})
	assert.Equal(t, workflow.CodeInvalidStatus, errCode(err))
	assert.Equal(t, "Concluído", errDetails(err)["status"])

	_, err = f.tickets.UpdateByStaff(context.Background(), agent, "not-a-uuid", TicketStaffUpdateInput{Status: &status})
	assert.Error(t, err)

	open := domain.TicketStatusClosed
	_, err = f.tickets.UpdateByStaff(context.Background(), agent, "7f0c0f1e-58a4-4a36-9d0a-8a1b8f9c1d11", TicketStaffUpdateInput{Status: &open})
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestStaffReopenExhaustsContest(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitIdentified(t, domain.TicketTypeComplaint)

	f.setStatus(t, agent, ticket.ID, domain.TicketStatusClosed)
	f.setStatus(t, agent, ticket.ID, domain.TicketStatusReopened)
	f.setStatus(t, agent, ticket.ID, domain.TicketStatusReopened)
	f.setStatus(t, agent, ticket.ID, domain.TicketStatusClosed)

	stored, err := f.repos.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ReopenCount)

	view, err := f.tickets.Lookup(context.Background(), ticket.ProtocolNumber)
	require.NoError(t, err)
	assert.False(t, view.CanContest)
	assert.Equal(t, 1, view.ReopenCount)

	_, err = f.tickets.Contest(context.Background(), ticket.ProtocolNumber)
	assert.Equal(t, workflow.CodeContestAlreadyUsed, errCode(err))

	history, err := f.repos.History.ListByTicket(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	reopens := 0
	for _, entry := range history {
		if entry.NewValue != nil && *entry.NewValue == string(domain.TicketStatusReopened) {
			reopens++
		}
	}
	assert.Equal(t, stored.ReopenCount, reopens)
}

func TestAssignRequiresAgentOrAdmin(t *testing.T) {
	f := newFixture(t, nil)
	admin := f.seedStaff(t, "Admin", "admin@example.com", domain.StaffRoleAdmin, "password1")
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	plain := f.seedStaff(t, "Usuário", "user@example.com", domain.StaffRoleUser, "password1")
	ticket := f.submitAnonymous(t, domain.TicketTypeComplaint)

	_, err := f.tickets.Assign(context.Background(), admin, ticket.ID, &plain.ID)
	assert.Equal(t, "VALIDATION_FAILED", errCode(err))

	updated, err := f.tickets.Assign(context.Background(), admin, ticket.ID, &agent.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ResponsibleAgent)
	assert.Equal(t, agent.ID, *updated.ResponsibleAgent)

	updated, err = f.tickets.Assign(context.Background(), admin, ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.ResponsibleAgent)

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	assignments := 0
	for _, entry := range history {
		if entry.ActionType == domain.HistoryActionAssignment {
			assignments++
		}
	}
	assert.Equal(t, 2, assignments)
}

func TestNotesAndStaffView(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente Silva", "agent@example.com", domain.StaffRoleAgent, "password1")
	ticket := f.submitIdentified(t, domain.TicketTypeSuggestion)

	_, err := f.tickets.AddNote(context.Background(), agent, ticket.ID, "   ")
	assert.Equal(t, "VALIDATION_FAILED", errCode(err))

	note, err := f.tickets.AddNote(context.Background(), agent, ticket.ID, "Ligar para a solicitante")
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)

	view, err := f.tickets.GetForStaff(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, view.Notes, 1)
	require.NotNil(t, view.Notes[0].AuthorName)
	assert.Equal(t, "Agente Silva", *view.Notes[0].AuthorName)
	assert.Len(t, view.History, 2)
	require.NotNil(t, view.Ticket.Email)
	assert.Equal(t, "maria@example.com", *view.Ticket.Email)
}

func TestListQueueEvaluatesSLA(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	first := f.submitIdentified(t, domain.TicketTypeComplaint)
	f.clock.Advance(24 * time.Hour)
	second := f.submitAnonymous(t, domain.TicketTypeComplaint)
	f.setStatus(t, agent, second.ID, domain.TicketStatusClosed)

	// Fourteen days after the first submission: 11 business days elapsed.
	f.clock.Advance(13 * 24 * time.Hour)

	items, err := f.tickets.ListQueue(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].Ticket.ID)
	assert.Equal(t, "warning", string(items[0].SLA.Class))
	assert.Equal(t, "none", string(items[1].SLA.Class))

	open, err := f.tickets.ListQueue(context.Background(), repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = f.tickets.ListQueue(context.Background(), repository.TicketFilter{Statuses: []domain.TicketStatus{"x"}})
	assert.Equal(t, "VALIDATION_FAILED", errCode(err))
}
