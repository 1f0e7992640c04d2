package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/config"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/events"
	"github.com/spec-kit/ouvidoria-service/internal/repository/memory"
	"github.com/spec-kit/ouvidoria-service/internal/sla"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email OutgoingEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repos   *memory.Repositories
	clock   *testClock
	calc    *sla.Calculator
	tickets *TicketService
	outbox  *EmailOutboxService
	cfg     config.Config
}

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

// newFixture wires services over in-memory repositories with the clock set to
// Monday 2024-01-01 10:00 in Sao Paulo. A nil mailer keeps emails pending.
func newFixture(t *testing.T, mailer Mailer) *fixture {
	t.Helper()
	loc := saoPaulo(t)
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, loc)}
	repos := memory.NewRepositories(clock.Now)
	calc := sla.NewCalculator(loc, clock.Now)
	cfg := config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: bcrypt.MinCost},
		Notification: config.NotificationConfig{
			EmailFrom:   "ouvidoria@example.com",
			MaxAttempts: 3,
			PortalURL:   "https://ouvidoria.example.com",
		},
	}

	dispatcher := events.NewInMemoryDispatcher()
	outbox := NewEmailOutboxService(repos.Emails, mailer, cfg.Notification, nil, nil)
	notifications := NewNotificationService(dispatcher, outbox, nil, nil, cfg.Notification)
	notifications.now = clock.Now
	notifications.RegisterHandlers()

	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  repos.Tickets,
		NoteRepo:    repos.Notes,
		HistoryRepo: repos.History,
		StaffRepo:   repos.Staff,
		Dispatcher:  dispatcher,
		SLA:         calc,
	})
	return &fixture{repos: repos, clock: clock, calc: calc, tickets: tickets, outbox: outbox, cfg: cfg}
}

func (f *fixture) seedStaff(t *testing.T, name, email string, role domain.StaffRole, password string) *domain.StaffProfile {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	profile := &domain.StaffProfile{FullName: name, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, f.repos.Staff.CreateWithCredential(context.Background(), profile))
	return profile
}

func (f *fixture) submitIdentified(t *testing.T, ticketType domain.TicketType) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Submit(context.Background(), TicketSubmitInput{
		Type:              ticketType,
		FullName:          "Maria Souza",
		WhatsappContact:   "(21) 99999-0000",
		Email:             "maria@example.com",
		EmailConfirmation: "maria@example.com",
		Campus:            "Niterói",
		Description:       "Atendimento demorado no domingo",
	})
	require.NoError(t, err)
	f.outbox.Wait()
	return ticket
}

func (f *fixture) submitAnonymous(t *testing.T, ticketType domain.TicketType) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Submit(context.Background(), TicketSubmitInput{
		Type:        ticketType,
		IsAnonymous: true,
		Campus:      domain.CampusOnline,
		Description: "Relato anônimo",
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) setStatus(t *testing.T, actor *domain.StaffProfile, ticketID string, status domain.TicketStatus) {
	t.Helper()
	_, err := f.tickets.UpdateByStaff(context.Background(), actor, ticketID, TicketStaffUpdateInput{Status: &status})
	require.NoError(t, err)
}

func errCode(err error) string {
	if de := apperrors.ToDomainError(err); de != nil {
		return de.Code
	}
	return ""
}

func errStatus(err error) int {
	if de := apperrors.ToDomainError(err); de != nil {
		return de.HTTPStatus
	}
	return 0
}

func errDetails(err error) map[string]any {
	if de := apperrors.ToDomainError(err); de != nil {
		return de.Details
	}
	return nil
}
