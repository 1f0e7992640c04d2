package events

import (
	"time"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketNoteAdded     EventType = "ticket_note_added"
)

// ActorType tells who triggered an event.
type ActorType string

const (
	ActorSubmitter ActorType = "submitter"
	ActorStaff     ActorType = "staff"
)

// Actor encapsulates actor metadata for an event. StaffID is nil for the
// unauthenticated submitter.
type Actor struct {
	Type    ActorType `json:"type"`
	StaffID *string   `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Recipient is the submitter contact carried by notification-bearing events.
// Email is nil for anonymous tickets.
type Recipient struct {
	Email       *string `json:"email,omitempty"`
	Name        *string `json:"name,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ProtocolNumber string              `json:"protocol_number"`
	Type           domain.TicketType   `json:"type"`
	Campus         domain.Campus       `json:"campus"`
	Status         domain.TicketStatus `json:"status"`
	DueDate        time.Time           `json:"due_date"`
	Recipient      Recipient           `json:"recipient"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	ProtocolNumber    string              `json:"protocol_number"`
	OldStatus         domain.TicketStatus `json:"old_status"`
	NewStatus         domain.TicketStatus `json:"new_status"`
	ResolutionSummary *string             `json:"resolution_summary,omitempty"`
	Contested         bool                `json:"contested"`
	Recipient         Recipient           `json:"recipient"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	ProtocolNumber  string  `json:"protocol_number"`
	AssigneeStaffID *string `json:"assignee_staff_id,omitempty"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NoteID      string `json:"note_id"`
	BodyPreview string `json:"body_preview"`
}
