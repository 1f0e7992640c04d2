// Package memory provides mutex-guarded in-memory repositories. They back local
// runs without Postgres and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
)

// Repositories groups every in-memory repository over one shared store, so
// writes spanning tickets and history stay atomic like their SQL counterparts.
type Repositories struct {
	Tickets  *TicketRepository
	Notes    *NoteRepository
	History  *HistoryRepository
	Staff    *StaffRepository
	Emails   *PendingEmailRepository
	Contents *ContentRepository
}

type store struct {
	mu       sync.RWMutex
	now      func() time.Time
	tickets  map[string]domain.Ticket
	notes    []domain.Note
	history  []domain.HistoryEvent
	staff    map[string]domain.StaffProfile
	emails   map[string]domain.PendingEmail
	contents map[string]domain.ContentSetting
}

// NewRepositories builds empty repositories. A nil clock means time.Now.
func NewRepositories(now func() time.Time) *Repositories {
	if now == nil {
		now = time.Now
	}
	s := &store{
		now:      now,
		tickets:  map[string]domain.Ticket{},
		staff:    map[string]domain.StaffProfile{},
		emails:   map[string]domain.PendingEmail{},
		contents: map[string]domain.ContentSetting{},
	}
	return &Repositories{
		Tickets:  &TicketRepository{s: s},
		Notes:    &NoteRepository{s: s},
		History:  &HistoryRepository{s: s},
		Staff:    &StaffRepository{s: s},
		Emails:   &PendingEmailRepository{s: s},
		Contents: &ContentRepository{s: s},
	}
}

func (s *store) appendHistory(event *domain.HistoryEvent) {
	event.ID = uuid.NewString()
	event.CreatedAt = s.now()
	s.history = append(s.history, *event)
}

// TicketRepository is the in-memory repository.TicketRepository.
type TicketRepository struct {
	s *store
}

var _ repository.TicketRepository = (*TicketRepository)(nil)

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket, created *domain.HistoryEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tickets {
		if existing.ProtocolNumber == ticket.ProtocolNumber {
			return repository.ErrDuplicate
		}
	}
	ticket.ID = uuid.NewString()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.s.now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = *ticket
	if created != nil {
		created.TicketID = ticket.ID
		r.s.appendHistory(created)
	}
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *TicketRepository) GetByProtocol(_ context.Context, protocol string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ticket := range r.s.tickets {
		if ticket.ProtocolNumber == protocol {
			return &ticket, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *TicketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Ticket{}
	for _, ticket := range r.s.tickets {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		start := filter.Offset
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (r *TicketRepository) UpdateStaffFields(_ context.Context, id string, mutate repository.TicketMutation) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket := stored
	entries, err := mutate(&ticket)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &stored, nil
	}
	// Only the staff-editable columns are written back.
	stored.ResolutionSummary = ticket.ResolutionSummary
	stored.ResponsibleAgent = ticket.ResponsibleAgent
	if repository.EntersReopened(stored.Status, ticket.Status) {
		stored.ReopenCount++
	}
	stored.Status = ticket.Status
	stored.UpdatedAt = r.s.now()
	r.s.tickets[id] = stored
	for i := range entries {
		entries[i].TicketID = id
		r.s.appendHistory(&entries[i])
	}
	return &stored, nil
}

func (r *TicketRepository) ContestReopen(_ context.Context, id string, cond repository.ReopenCondition, event *domain.HistoryEvent) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Status != cond.From || ticket.ReopenCount >= cond.MaxReopens || !containsType(cond.Types, ticket.Type) {
		return nil, repository.ErrConditionFailed
	}
	ticket.Status = cond.To
	ticket.ReopenCount++
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[id] = ticket
	if event != nil {
		event.TicketID = id
		r.s.appendHistory(event)
	}
	return &ticket, nil
}

// NoteRepository is the in-memory repository.TicketNoteRepository.
type NoteRepository struct {
	s *store
}

var _ repository.TicketNoteRepository = (*NoteRepository)(nil)

func (r *NoteRepository) Create(_ context.Context, note *domain.Note, event *domain.HistoryEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[note.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	note.ID = uuid.NewString()
	note.CreatedAt = r.s.now()
	r.s.notes = append(r.s.notes, *note)
	if event != nil {
		event.TicketID = note.TicketID
		r.s.appendHistory(event)
	}
	return nil
}

func (r *NoteRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Note{}
	for _, note := range r.s.notes {
		if note.TicketID != ticketID {
			continue
		}
		if note.AuthorID != nil {
			if author, ok := r.s.staff[*note.AuthorID]; ok {
				name := author.FullName
				note.AuthorName = &name
			}
		}
		out = append(out, note)
	}
	return out, nil
}

// HistoryRepository is the in-memory repository.TicketHistoryRepository.
type HistoryRepository struct {
	s *store
}

var _ repository.TicketHistoryRepository = (*HistoryRepository)(nil)

func (r *HistoryRepository) Create(_ context.Context, event *domain.HistoryEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendHistory(event)
	return nil
}

func (r *HistoryRepository) ListByTicket(_ context.Context, ticketID string, publicOnly bool) ([]domain.HistoryEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.HistoryEvent{}
	for _, event := range r.s.history {
		if event.TicketID != ticketID {
			continue
		}
		if publicOnly && !event.ActionType.Public() {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

// StaffRepository is the in-memory repository.StaffRepository.
type StaffRepository struct {
	s *store
}

var _ repository.StaffRepository = (*StaffRepository)(nil)

func (r *StaffRepository) CreateWithCredential(_ context.Context, profile *domain.StaffProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.staff {
		if strings.EqualFold(existing.Email, profile.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	profile.ID = uuid.NewString()
	profile.UserID = uuid.NewString()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	r.s.staff[profile.ID] = *profile
	return nil
}

func (r *StaffRepository) Update(_ context.Context, profile *domain.StaffProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.staff[profile.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.FullName = profile.FullName
	stored.Role = profile.Role
	stored.UpdatedAt = r.s.now()
	r.s.staff[profile.ID] = stored
	profile.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *StaffRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, profile := range r.s.staff {
		if profile.UserID == userID {
			profile.PasswordHash = passwordHash
			profile.UpdatedAt = r.s.now()
			r.s.staff[id] = profile
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *StaffRepository) GetByID(_ context.Context, id string) (*domain.StaffProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	profile, ok := r.s.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

func (r *StaffRepository) GetByUserID(_ context.Context, userID string) (*domain.StaffProfile, error) {
	return r.find(func(p domain.StaffProfile) bool { return p.UserID == userID })
}

func (r *StaffRepository) GetByEmail(_ context.Context, email string) (*domain.StaffProfile, error) {
	return r.find(func(p domain.StaffProfile) bool { return strings.EqualFold(p.Email, email) })
}

func (r *StaffRepository) find(match func(domain.StaffProfile) bool) (*domain.StaffProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, profile := range r.s.staff {
		if match(profile) {
			return &profile, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *StaffRepository) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.StaffProfile{}
	for _, profile := range r.s.staff {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, profile.Role) {
			continue
		}
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *StaffRepository) DeleteWithCredential(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.staff[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.staff, id)
	for key, ticket := range r.s.tickets {
		if ticket.ResponsibleAgent != nil && *ticket.ResponsibleAgent == id {
			ticket.ResponsibleAgent = nil
			r.s.tickets[key] = ticket
		}
	}
	for i := range r.s.notes {
		if r.s.notes[i].AuthorID != nil && *r.s.notes[i].AuthorID == id {
			r.s.notes[i].AuthorID = nil
		}
	}
	return nil
}

// PendingEmailRepository is the in-memory repository.PendingEmailRepository.
type PendingEmailRepository struct {
	s *store
}

var _ repository.PendingEmailRepository = (*PendingEmailRepository)(nil)

func (r *PendingEmailRepository) Create(_ context.Context, email *domain.PendingEmail) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email.ID = uuid.NewString()
	email.RequestedAt = r.s.now()
	r.s.emails[email.ID] = *email
	return nil
}

func (r *PendingEmailRepository) GetByID(_ context.Context, id string) (*domain.PendingEmail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email, ok := r.s.emails[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &email, nil
}

func (r *PendingEmailRepository) List(_ context.Context, filter repository.PendingEmailFilter) ([]domain.PendingEmail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.PendingEmail{}
	for _, email := range r.s.emails {
		if filter.UnsentOnly && email.Sent {
			continue
		}
		out = append(out, email)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *PendingEmailRepository) ListDeliverable(_ context.Context, maxAttempts, limit int) ([]domain.PendingEmail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.PendingEmail{}
	for _, email := range r.s.emails {
		if email.Sent || email.Attempts >= maxAttempts {
			continue
		}
		out = append(out, email)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PendingEmailRepository) RecordAttempt(_ context.Context, id string, deliveryErr error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email, ok := r.s.emails[id]
	if !ok {
		return pgx.ErrNoRows
	}
	email.Attempts++
	if deliveryErr == nil {
		now := r.s.now()
		email.Sent = true
		email.SentAt = &now
		email.LastError = nil
	} else {
		msg := deliveryErr.Error()
		email.LastError = &msg
	}
	r.s.emails[id] = email
	return nil
}

func (r *PendingEmailRepository) MarkSent(_ context.Context, id string) (*domain.PendingEmail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email, ok := r.s.emails[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	email.Sent = true
	if email.SentAt == nil {
		now := r.s.now()
		email.SentAt = &now
	}
	r.s.emails[id] = email
	return &email, nil
}

// ContentRepository is the in-memory repository.ContentRepository.
type ContentRepository struct {
	s *store
}

var _ repository.ContentRepository = (*ContentRepository)(nil)

func (r *ContentRepository) List(_ context.Context) ([]domain.ContentSetting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.ContentSetting, 0, len(r.s.contents))
	for _, setting := range r.s.contents {
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *ContentRepository) Upsert(_ context.Context, setting *domain.ContentSetting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.contents[setting.Key]
	if !ok {
		stored = domain.ContentSetting{ID: uuid.NewString(), Key: setting.Key}
	}
	stored.Value = setting.Value
	if setting.Description != nil {
		stored.Description = setting.Description
	}
	stored.UpdatedAt = r.s.now()
	r.s.contents[setting.Key] = stored
	*setting = stored
	return nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsType(list []domain.TicketType, t domain.TicketType) bool {
	for _, candidate := range list {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsRole(list []domain.StaffRole, role domain.StaffRole) bool {
	for _, candidate := range list {
		if candidate == role {
			return true
		}
	}
	return false
}
