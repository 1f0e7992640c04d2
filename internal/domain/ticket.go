package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Values are the labels
// persisted and shown to submitters.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Aberto"
	TicketStatusInProgress TicketStatus = "Em andamento"
	TicketStatusWaiting    TicketStatus = "Aguardando"
	TicketStatusClosed     TicketStatus = "Fechado"
	TicketStatusReopened   TicketStatus = "Reaberto"
)

// TicketStatuses lists every valid status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaiting,
	TicketStatusClosed,
	TicketStatusReopened,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketType classifies the submission.
type TicketType string

const (
	TicketTypeCompliment TicketType = "Elogio"
	TicketTypeSuggestion TicketType = "Sugestão"
	TicketTypeCriticism  TicketType = "Crítica"
	TicketTypeComplaint  TicketType = "Denúncia"
)

// TicketTypes lists every valid ticket type.
var TicketTypes = []TicketType{
	TicketTypeCompliment,
	TicketTypeSuggestion,
	TicketTypeCriticism,
	TicketTypeComplaint,
}

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	for _, candidate := range TicketTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Campus is one of the church campuses, or Online.
type Campus string

const CampusOnline Campus = "Online"

// Campuses lists every accepted campus.
var Campuses = []Campus{
	"Niterói",
	"Barra",
	"Búzios",
	"Zona Sul",
	"Caxias",
	"Itaboraí",
	"Petrópolis",
	"Friburgo",
	"Teresópolis",
	"Cabo Frio",
	"Macaé",
	"Maricá",
	CampusOnline,
}

// Valid reports whether c is a known campus.
func (c Campus) Valid() bool {
	for _, candidate := range Campuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for a submitted manifestation.
type Ticket struct {
	ID                string
	ProtocolNumber    string
	Type              TicketType
	IsAnonymous       bool
	FullName          *string
	WhatsappContact   *string
	Email             *string
	Campus            Campus
	Description       string
	Status            TicketStatus
	ResolutionSummary *string
	ResponsibleAgent  *string
	ReopenCount       int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DueDate           time.Time
}

// HasIdentity reports whether the submitter left contact details.
func (t *Ticket) HasIdentity() bool {
	return !t.IsAnonymous && t.Email != nil && *t.Email != ""
}

// StripIdentity clears every identifying field. Anonymous tickets must never
// carry them, whatever path produced the value.
func (t *Ticket) StripIdentity() {
	t.FullName = nil
	t.WhatsappContact = nil
	t.Email = nil
}

// Note is an internal staff annotation on a ticket. AuthorID is cleared when
// the author leaves the roster.
type Note struct {
	ID         string
	TicketID   string
	AuthorID   *string
	AuthorName *string
	Body       string
	CreatedAt  time.Time
}
