package dto

import (
	"time"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// DashboardResponse aggregates ticket statistics.
type DashboardResponse struct {
	Total         int                `json:"total"`
	ByStatus      map[string]int     `json:"by_status"`
	ByType        map[string]int     `json:"by_type"`
	ByCampus      map[string]int     `json:"by_campus"`
	ClosedByAgent []AgentClosedCount `json:"closed_by_agent"`
	Monthly       []MonthCount       `json:"monthly"`
	OpenBySLA     map[string]int     `json:"open_by_sla"`
}

// AgentClosedCount is the number of closed tickets held by one staff member.
type AgentClosedCount struct {
	StaffID  string `json:"staff_id"`
	FullName string `json:"full_name"`
	Closed   int    `json:"closed"`
}

// MonthCount is the number of tickets created in a month ("2006-01").
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// PendingEmailResponse is an outbox entry.
type PendingEmailResponse struct {
	ID          string              `json:"id"`
	Recipient   string              `json:"recipient"`
	Name        *string             `json:"name"`
	Subject     string              `json:"subject"`
	HTMLBody    string              `json:"html_body"`
	Protocol    string              `json:"protocol"`
	Status      domain.TicketStatus `json:"status"`
	Attempts    int                 `json:"attempts"`
	LastError   *string             `json:"last_error"`
	Sent        bool                `json:"sent"`
	RequestedAt time.Time           `json:"requested_at"`
	SentAt      *time.Time          `json:"sent_at"`
}

// ContentResponse is a portal copy entry.
type ContentResponse struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateContentRequest payload.
type UpdateContentRequest struct {
	Value       string  `json:"value" validate:"max=10000"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}
