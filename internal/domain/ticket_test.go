package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnumsValid(t *testing.T) {
	assert.True(t, TicketStatusReopened.Valid())
	assert.False(t, TicketStatus("Concluído").Valid())
	assert.True(t, TicketTypeComplaint.Valid())
	assert.False(t, TicketType("Critica").Valid())
	assert.True(t, CampusOnline.Valid())
	assert.True(t, Campus("Niterói").Valid())
	assert.False(t, Campus("Lisboa").Valid())
	assert.True(t, StaffRoleAgent.Valid())
	assert.False(t, StaffRole("owner").Valid())
	assert.Len(t, Campuses, 13)
}

func TestStripIdentity(t *testing.T) {
	name, phone, email := "Maria", "(21) 99999-9999", "maria@example.com"
	ticket := &Ticket{FullName: &name, WhatsappContact: &phone, Email: &email}
	assert.True(t, ticket.HasIdentity())

	ticket.StripIdentity()
	assert.Nil(t, ticket.FullName)
	assert.Nil(t, ticket.WhatsappContact)
	assert.Nil(t, ticket.Email)
	assert.False(t, ticket.HasIdentity())
}

func TestHasIdentityIgnoresAnonymousFlag(t *testing.T) {
	email := "x@example.com"
	ticket := &Ticket{IsAnonymous: true, Email: &email}
	assert.False(t, ticket.HasIdentity())
}

func TestPublicHistory(t *testing.T) {
	entries := []HistoryEvent{
		{ID: "1", ActionType: HistoryActionCreated},
		{ID: "2", ActionType: HistoryActionNoteAdded},
		{ID: "3", ActionType: HistoryActionStatusChange},
		{ID: "4", ActionType: HistoryActionAssignment},
		{ID: "5", ActionType: HistoryActionUpdated},
	}
	public := PublicHistory(entries)
	if assert.Len(t, public, 2) {
		assert.Equal(t, "1", public[0].ID)
		assert.Equal(t, "3", public[1].ID)
	}
}
