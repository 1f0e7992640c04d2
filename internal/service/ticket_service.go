package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/events"
	"github.com/spec-kit/ouvidoria-service/internal/observability"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	"github.com/spec-kit/ouvidoria-service/internal/sla"
	"github.com/spec-kit/ouvidoria-service/internal/workflow"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const (
	protocolPrefix       = "OUV"
	protocolAttempts     = 5
	notePreviewLength    = 120
	maxDescriptionLength = 10000
)

var protocolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,39}$`)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	notes      repository.TicketNoteRepository
	history    repository.TicketHistoryRepository
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	sla        *sla.Calculator
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	NoteRepo    repository.TicketNoteRepository
	HistoryRepo repository.TicketHistoryRepository
	StaffRepo   repository.StaffRepository
	Dispatcher  events.Dispatcher
	SLA         *sla.Calculator
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// TicketSubmitInput describes a public submission. Identity fields are
// ignored when IsAnonymous is set.
type TicketSubmitInput struct {
	Type              domain.TicketType
	IsAnonymous       bool
	FullName          string
	WhatsappContact   string
	Email             string
	EmailConfirmation string
	Campus            domain.Campus
	Description       string
}

// TicketStaffUpdateInput carries a staff edit. Nil fields are left alone.
type TicketStaffUpdateInput struct {
	Status            *domain.TicketStatus
	ResolutionSummary *string
}

// PublicTicketView is what the tracking page may show. It never carries
// contact details, and never the name of an anonymous submitter.
type PublicTicketView struct {
	ProtocolNumber    string
	Type              domain.TicketType
	Campus            domain.Campus
	Description       string
	Status            domain.TicketStatus
	ResolutionSummary *string
	IsAnonymous       bool
	FullName          *string
	ReopenCount       int
	CanContest        bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DueDate           time.Time
	SLA               sla.Report
	History           []domain.HistoryEvent
}

// QueueItem is a ticket with its current window evaluation.
type QueueItem struct {
	Ticket domain.Ticket
	SLA    sla.Report
}

// StaffTicketView is the full admin detail of a ticket.
type StaffTicketView struct {
	Ticket     *domain.Ticket
	SLA        sla.Report
	CanContest bool
	Notes      []domain.Note
	History    []domain.HistoryEvent
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	calc := deps.SLA
	if calc == nil {
		calc = sla.NewCalculator(nil, nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		notes:      deps.NoteRepo,
		history:    deps.HistoryRepo,
		staff:      deps.StaffRepo,
		dispatcher: deps.Dispatcher,
		sla:        calc,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Submit validates and stores a new ticket and returns it with its protocol number.
func (s *TicketService) Submit(ctx context.Context, input TicketSubmitInput) (*domain.Ticket, error) {
	ticket, err := buildTicket(input)
	if err != nil {
		return nil, err
	}

	now := s.sla.Now()
	ticket.Status = domain.TicketStatusOpen
	ticket.CreatedAt = now
	ticket.DueDate = s.sla.DueDate(now, ticket.IsAnonymous)

	created := &domain.HistoryEvent{
		ActionType:  domain.HistoryActionCreated,
		NewValue:    stringPtr(string(domain.TicketStatusOpen)),
		Description: "Manifestação registrada",
		CreatedAt:   now,
	}

	for attempt := 0; ; attempt++ {
		ticket.ProtocolNumber = s.generateProtocol(now)
		err = s.tickets.Create(ctx, ticket, created)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt+1 >= protocolAttempts {
			return nil, err
		}
		s.logger.Warn("protocol collision, regenerating", zap.String("protocol_number", ticket.ProtocolNumber))
	}

	s.metrics.RecordSubmission(string(ticket.Type), ticket.IsAnonymous)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    submitterActor(),
		Payload: events.TicketCreatedPayload{
			ProtocolNumber: ticket.ProtocolNumber,
			Type:           ticket.Type,
			Campus:         ticket.Campus,
			Status:         ticket.Status,
			DueDate:        ticket.DueDate,
			Recipient:      recipientOf(ticket),
		},
	})
	return ticket, nil
}

// Lookup finds a ticket by protocol for the public tracking view.
func (s *TicketService) Lookup(ctx context.Context, protocol string) (*PublicTicketView, error) {
	ticket, err := s.findByProtocol(ctx, protocol)
	if err != nil {
		return nil, err
	}
	return s.publicView(ctx, ticket)
}

// Contest reopens a closed criticism or complaint on the submitter's request.
// The rules are checked up front and again by the conditional write, so two
// concurrent contests cannot both succeed.
func (s *TicketService) Contest(ctx context.Context, protocol string) (*PublicTicketView, error) {
	ticket, err := s.findByProtocol(ctx, protocol)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckContest(ticket); err != nil {
		s.metrics.RecordContest("rejected")
		return nil, workflow.ContestError(err, ticket)
	}

	event := &domain.HistoryEvent{
		TicketID:    ticket.ID,
		ActionType:  domain.HistoryActionStatusChange,
		FieldName:   stringPtr("status"),
		OldValue:    stringPtr(string(domain.TicketStatusClosed)),
		NewValue:    stringPtr(string(domain.TicketStatusReopened)),
		Description: workflow.ContestDescription,
		CreatedAt:   s.sla.Now(),
	}
	updated, err := s.tickets.ContestReopen(ctx, ticket.ID, repository.ReopenCondition{
		From:       domain.TicketStatusClosed,
		To:         domain.TicketStatusReopened,
		MaxReopens: workflow.MaxReopens,
		Types:      workflow.ContestableTypes,
	}, event)
	if errors.Is(err, repository.ErrConditionFailed) {
		s.metrics.RecordContest("rejected")
		current, getErr := s.tickets.GetByID(ctx, ticket.ID)
		if getErr != nil {
			return nil, apperrors.MapError(getErr)
		}
		if reason := workflow.CheckContest(current); reason != nil {
			return nil, workflow.ContestError(reason, current)
		}
		return nil, apperrors.NewConflict("ticket changed while contesting, try again", map[string]any{
			"protocol_number": current.ProtocolNumber,
		})
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordContest("accepted")
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    submitterActor(),
		Payload: events.TicketStatusChangedPayload{
			ProtocolNumber:    updated.ProtocolNumber,
			OldStatus:         domain.TicketStatusClosed,
			NewStatus:         updated.Status,
			ResolutionSummary: updated.ResolutionSummary,
			Contested:         true,
			Recipient:         recipientOf(updated),
		},
	})
	return s.publicView(ctx, updated)
}

// ListQueue returns tickets oldest first, each with its window evaluation.
func (s *TicketService) ListQueue(ctx context.Context, filter repository.TicketFilter) ([]QueueItem, error) {
	for _, status := range filter.Statuses {
		if !workflow.ValidStatus(status) {
			return nil, apperrors.NewValidationError("unknown status filter", map[string]any{"status": string(status)})
		}
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]QueueItem, 0, len(tickets))
	for i := range tickets {
		items = append(items, QueueItem{Ticket: tickets[i], SLA: s.sla.Evaluate(&tickets[i])})
	}
	return items, nil
}

// GetForStaff returns the full ticket detail with notes and history.
func (s *TicketService) GetForStaff(ctx context.Context, ticketID string) (*StaffTicketView, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID, false)
	if err != nil {
		return nil, err
	}
	return &StaffTicketView{
		Ticket:     ticket,
		SLA:        s.sla.Evaluate(ticket),
		CanContest: workflow.CanContest(ticket),
		Notes:      notes,
		History:    history,
	}, nil
}

// UpdateByStaff applies a staff edit. Concurrent edits are last write wins;
// each one is recorded in the history.
func (s *TicketService) UpdateByStaff(ctx context.Context, actor *domain.StaffProfile, ticketID string, input TicketStaffUpdateInput) (*domain.Ticket, error) {
	if input.Status == nil && input.ResolutionSummary == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if input.Status != nil && !workflow.ValidStatus(*input.Status) {
		return nil, workflow.InvalidStatusError(*input.Status)
	}
	if !validID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}

	actorID := staffID(actor)
	now := s.sla.Now()
	var oldStatus domain.TicketStatus
	updated, err := s.tickets.UpdateStaffFields(ctx, ticketID, func(ticket *domain.Ticket) ([]domain.HistoryEvent, error) {
		oldStatus = ticket.Status
		var entries []domain.HistoryEvent
		if input.Status != nil && *input.Status != ticket.Status {
			if err := workflow.CheckStaffTransition(ticket.Status, *input.Status); err != nil {
				return nil, err
			}
			entries = append(entries, domain.HistoryEvent{
				TicketID:    ticket.ID,
				ActionType:  domain.HistoryActionStatusChange,
				FieldName:   stringPtr("status"),
				OldValue:    stringPtr(string(ticket.Status)),
				NewValue:    stringPtr(string(*input.Status)),
				Description: workflow.StatusChangeDescription(ticket.Status, *input.Status),
				ActorID:     actorID,
				CreatedAt:   now,
			})
			ticket.Status = *input.Status
		}
		if input.ResolutionSummary != nil {
			summary := normalizeOptional(*input.ResolutionSummary)
			if !equalOptional(summary, ticket.ResolutionSummary) {
				entries = append(entries, domain.HistoryEvent{
					TicketID:    ticket.ID,
					ActionType:  domain.HistoryActionUpdated,
					FieldName:   stringPtr("resolution_summary"),
					OldValue:    ticket.ResolutionSummary,
					NewValue:    summary,
					Description: "Resumo da resolução atualizado",
					ActorID:     actorID,
					CreatedAt:   now,
				})
				ticket.ResolutionSummary = summary
			}
		}
		return entries, nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, apperrors.MapError(err)
	}

	if updated.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Actor:    staffActor(actorID),
			Payload: events.TicketStatusChangedPayload{
				ProtocolNumber:    updated.ProtocolNumber,
				OldStatus:         oldStatus,
				NewStatus:         updated.Status,
				ResolutionSummary: updated.ResolutionSummary,
				Recipient:         recipientOf(updated),
			},
		})
	}
	return updated, nil
}

// Assign sets or clears the responsible agent. Only agents and admins can
// be made responsible for a ticket.
func (s *TicketService) Assign(ctx context.Context, actor *domain.StaffProfile, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if !validID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}
	var assignee *domain.StaffProfile
	if assigneeID != nil && strings.TrimSpace(*assigneeID) != "" {
		profile, err := s.staff.GetByID(ctx, strings.TrimSpace(*assigneeID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("staff member", map[string]any{"staff_id": *assigneeID})
			}
			return nil, err
		}
		if profile.Role != domain.StaffRoleAgent && profile.Role != domain.StaffRoleAdmin {
			return nil, apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{
				"staff_id": profile.ID,
				"role":     string(profile.Role),
			})
		}
		assignee = profile
	}

	actorID := staffID(actor)
	now := s.sla.Now()
	changed := false
	updated, err := s.tickets.UpdateStaffFields(ctx, ticketID, func(ticket *domain.Ticket) ([]domain.HistoryEvent, error) {
		var next *string
		description := "Responsável removido"
		if assignee != nil {
			next = stringPtr(assignee.ID)
			description = fmt.Sprintf("Responsável definido: %s", assignee.FullName)
		}
		if equalOptional(next, ticket.ResponsibleAgent) {
			return nil, nil
		}
		entry := domain.HistoryEvent{
			TicketID:    ticket.ID,
			ActionType:  domain.HistoryActionAssignment,
			FieldName:   stringPtr("responsible_agent"),
			OldValue:    ticket.ResponsibleAgent,
			NewValue:    next,
			Description: description,
			ActorID:     actorID,
			CreatedAt:   now,
		}
		ticket.ResponsibleAgent = next
		changed = true
		return []domain.HistoryEvent{entry}, nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, apperrors.MapError(err)
	}

	if changed {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: updated.ID,
			Actor:    staffActor(actorID),
			Payload: events.TicketAssignedPayload{
				ProtocolNumber:  updated.ProtocolNumber,
				AssigneeStaffID: updated.ResponsibleAgent,
			},
		})
	}
	return updated, nil
}

// AddNote appends an internal note and records it in the history.
func (s *TicketService) AddNote(ctx context.Context, actor *domain.StaffProfile, ticketID, body string) (*domain.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("note body is required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	actorID := staffID(actor)
	now := s.sla.Now()
	note := &domain.Note{
		TicketID:  ticket.ID,
		AuthorID:  actorID,
		Body:      body,
		CreatedAt: now,
	}
	if actor != nil {
		note.AuthorName = stringPtr(actor.FullName)
	}
	event := &domain.HistoryEvent{
		TicketID:    ticket.ID,
		ActionType:  domain.HistoryActionNoteAdded,
		Description: "Nota interna adicionada",
		ActorID:     actorID,
		CreatedAt:   now,
	}
	if err := s.notes.Create(ctx, note, event); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketNoteAdded,
		TicketID: ticket.ID,
		Actor:    staffActor(actorID),
		Payload: events.TicketNoteAddedPayload{
			NoteID:      note.ID,
			BodyPreview: stringPreview(body, notePreviewLength),
		},
	})
	return note, nil
}

// ListNotes returns a ticket's internal notes, oldest first.
func (s *TicketService) ListNotes(ctx context.Context, ticketID string) ([]domain.Note, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.notes.ListByTicket(ctx, ticket.ID)
}

// ListHistory returns every history entry of a ticket.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string) ([]domain.HistoryEvent, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticket.ID, false)
}

func (s *TicketService) publicView(ctx context.Context, ticket *domain.Ticket) (*PublicTicketView, error) {
	history, err := s.history.ListByTicket(ctx, ticket.ID, true)
	if err != nil {
		return nil, err
	}
	view := &PublicTicketView{
		ProtocolNumber:    ticket.ProtocolNumber,
		Type:              ticket.Type,
		Campus:            ticket.Campus,
		Description:       ticket.Description,
		Status:            ticket.Status,
		ResolutionSummary: ticket.ResolutionSummary,
		IsAnonymous:       ticket.IsAnonymous,
		ReopenCount:       ticket.ReopenCount,
		CanContest:        workflow.CanContest(ticket),
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
		DueDate:           ticket.DueDate,
		SLA:               s.sla.Evaluate(ticket),
		History:           domain.PublicHistory(history),
	}
	if !ticket.IsAnonymous {
		view.FullName = ticket.FullName
	}
	return view, nil
}

func (s *TicketService) findByProtocol(ctx context.Context, raw string) (*domain.Ticket, error) {
	protocol := NormalizeProtocol(raw)
	if !protocolPattern.MatchString(protocol) {
		return nil, apperrors.NewValidationError("invalid protocol number", map[string]any{"protocol_number": raw})
	}
	ticket, err := s.tickets.GetByProtocol(ctx, protocol)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"protocol_number": protocol})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if !validID(ticketID) {
		return nil, ticketNotFound(ticketID)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, err
	}
	return ticket, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func ticketNotFound(ticketID string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
}

func (s *TicketService) generateProtocol(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", protocolPrefix, now.In(s.sla.Location()).Format("20060102"), suffix)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.sla.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// NormalizeProtocol trims and upper-cases a typed protocol number.
func NormalizeProtocol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func buildTicket(input TicketSubmitInput) (*domain.Ticket, error) {
	details := map[string]any{}
	if !input.Type.Valid() {
		details["type"] = "must be one of the ticket types"
	}
	if !input.Campus.Valid() {
		details["campus"] = "must be one of the campuses"
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		details["description"] = "is required"
	} else if len(description) > maxDescriptionLength {
		details["description"] = "is too long"
	}

	ticket := &domain.Ticket{
		Type:        input.Type,
		IsAnonymous: input.IsAnonymous,
		Campus:      input.Campus,
		Description: description,
	}

	if !input.IsAnonymous {
		name := strings.TrimSpace(input.FullName)
		phone := strings.TrimSpace(input.WhatsappContact)
		email := strings.TrimSpace(input.Email)
		confirmation := strings.TrimSpace(input.EmailConfirmation)
		if name == "" {
			details["full_name"] = "is required"
		}
		if phone == "" {
			details["whatsapp_contact"] = "is required"
		}
		if email == "" {
			details["email"] = "is required"
		} else if _, err := mail.ParseAddress(email); err != nil {
			details["email"] = "is not a valid address"
		} else if !strings.EqualFold(email, confirmation) {
			details["email_confirmation"] = "does not match email"
		}
		ticket.FullName = stringPtr(name)
		ticket.WhatsappContact = stringPtr(phone)
		ticket.Email = stringPtr(email)
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket submission", details)
	}
	if ticket.IsAnonymous {
		ticket.StripIdentity()
	}
	return ticket, nil
}

func recipientOf(ticket *domain.Ticket) events.Recipient {
	if !ticket.HasIdentity() {
		return events.Recipient{IsAnonymous: ticket.IsAnonymous}
	}
	return events.Recipient{
		Email:       ticket.Email,
		Name:        ticket.FullName,
		IsAnonymous: false,
	}
}

func submitterActor() events.Actor {
	return events.Actor{Type: events.ActorSubmitter}
}

func staffActor(id *string) events.Actor {
	return events.Actor{Type: events.ActorStaff, StaffID: id}
}

func staffID(actor *domain.StaffProfile) *string {
	if actor == nil {
		return nil
	}
	return stringPtr(actor.ID)
}

func stringPtr(v string) *string {
	return &v
}

func normalizeOptional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
