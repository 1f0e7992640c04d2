package dto

import (
	"time"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// SubmitTicketRequest is the public manifestation form. Identity fields are
// ignored for anonymous submissions.
type SubmitTicketRequest struct {
	Type              domain.TicketType `json:"type" validate:"required"`
	IsAnonymous       bool              `json:"is_anonymous"`
	FullName          string            `json:"full_name" validate:"max=200"`
	WhatsappContact   string            `json:"whatsapp_contact" validate:"max=40"`
	Email             string            `json:"email" validate:"max=255"`
	EmailConfirmation string            `json:"email_confirmation" validate:"max=255"`
	Campus            domain.Campus     `json:"campus" validate:"required"`
	Description       string            `json:"description" validate:"required,max=10000"`
}

// SubmitTicketResponse confirms a submission.
type SubmitTicketResponse struct {
	ProtocolNumber string              `json:"protocol_number"`
	Status         domain.TicketStatus `json:"status"`
	DueDate        time.Time           `json:"due_date"`
	CreatedAt      time.Time           `json:"created_at"`
}

// SLAResponse is a deadline evaluation.
type SLAResponse struct {
	Class            string    `json:"class"`
	ElapsedDays      int       `json:"elapsed_days"`
	LimitDays        int       `json:"limit_days"`
	WarningThreshold int       `json:"warning_threshold"`
	RemainingDays    int       `json:"remaining_days"`
	DueDate          time.Time `json:"due_date"`
}

// PublicTicketResponse is the tracking view of a ticket.
type PublicTicketResponse struct {
	ProtocolNumber    string              `json:"protocol_number"`
	Type              domain.TicketType   `json:"type"`
	Campus            domain.Campus       `json:"campus"`
	Description       string              `json:"description"`
	Status            domain.TicketStatus `json:"status"`
	ResolutionSummary *string             `json:"resolution_summary"`
	IsAnonymous       bool                `json:"is_anonymous"`
	FullName          *string             `json:"full_name,omitempty"`
	ReopenCount       int                 `json:"reopen_count"`
	CanContest        bool                `json:"can_contest"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DueDate           time.Time           `json:"due_date"`
	SLA               SLAResponse         `json:"sla"`
	History           []HistoryResponse   `json:"history"`
}

// TicketResponse is the staff view of a ticket, contact details included.
type TicketResponse struct {
	ID                string              `json:"id"`
	ProtocolNumber    string              `json:"protocol_number"`
	Type              domain.TicketType   `json:"type"`
	IsAnonymous       bool                `json:"is_anonymous"`
	FullName          *string             `json:"full_name"`
	WhatsappContact   *string             `json:"whatsapp_contact"`
	Email             *string             `json:"email"`
	Campus            domain.Campus       `json:"campus"`
	Description       string              `json:"description"`
	Status            domain.TicketStatus `json:"status"`
	ResolutionSummary *string             `json:"resolution_summary"`
	ResponsibleAgent  *string             `json:"responsible_agent"`
	ReopenCount       int                 `json:"reopen_count"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DueDate           time.Time           `json:"due_date"`
	SLA               *SLAResponse        `json:"sla,omitempty"`
}

// TicketDetailResponse adds notes and the full audit trail.
type TicketDetailResponse struct {
	TicketResponse
	CanContest bool              `json:"can_contest"`
	Notes      []NoteResponse    `json:"notes"`
	History    []HistoryResponse `json:"history"`
}

// UpdateTicketRequest edits status and/or resolution summary.
type UpdateTicketRequest struct {
	Status            *domain.TicketStatus `json:"status"`
	ResolutionSummary *string              `json:"resolution_summary" validate:"omitempty,max=10000"`
}

// AssignTicketRequest sets or clears the responsible staff member.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id" validate:"omitempty,uuid"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// NoteResponse represents an internal note.
type NoteResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   *string   `json:"author_id"`
	AuthorName *string   `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse is one audit entry. ActorID is omitted on public views.
type HistoryResponse struct {
	ActionType  domain.HistoryAction `json:"action_type"`
	FieldName   *string              `json:"field_name,omitempty"`
	OldValue    *string              `json:"old_value,omitempty"`
	NewValue    *string              `json:"new_value,omitempty"`
	Description string               `json:"description"`
	ActorID     *string              `json:"actor_id,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}
