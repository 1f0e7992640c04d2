package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
)

func TestStaffCreateDefaultsToLeastPrivilege(t *testing.T) {
	f := newFixture(t, nil)
	admin := f.seedStaff(t, "Admin", "admin@example.com", domain.StaffRoleAdmin, "password1")
	svc := NewStaffService(f.cfg, f.repos.Staff)

	profile, password, err := svc.Create(context.Background(), admin, "  Nova Pessoa ", "Nova@Example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleUser, profile.Role)
	assert.Equal(t, "Nova Pessoa", profile.FullName)
	assert.Equal(t, "nova@example.com", profile.Email)
	assert.Len(t, password, temporaryPasswordLength)
	assert.NoError(t, auth.ComparePassword(profile.PasswordHash, password))

	_, _, err = svc.Create(context.Background(), admin, "Outra", "nova@example.com")
	assert.Equal(t, "CONFLICT", errCode(err))

	list, err := svc.List(context.Background(), admin, repository.StaffFilter{Roles: []domain.StaffRole{domain.StaffRoleUser}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, profile.ID, list[0].ID)
}

func TestStaffManagementRequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	svc := NewStaffService(f.cfg, f.repos.Staff)

	_, _, err := svc.Create(context.Background(), agent, "X", "x@example.com")
	assert.Equal(t, "FORBIDDEN", errCode(err))
	_, err = svc.List(context.Background(), nil, repository.StaffFilter{})
	assert.Equal(t, "FORBIDDEN", errCode(err))
}

func TestStaffUpdateAndSelfProtection(t *testing.T) {
	f := newFixture(t, nil)
	admin := f.seedStaff(t, "Admin", "admin@example.com", domain.StaffRoleAdmin, "password1")
	member := f.seedStaff(t, "Membro", "member@example.com", domain.StaffRoleUser, "password1")
	svc := NewStaffService(f.cfg, f.repos.Staff)

	role := domain.StaffRoleAgent
	name := "Membro Promovido"
	updated, err := svc.Update(context.Background(), admin, member.ID, StaffUpdateInput{FullName: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleAgent, updated.Role)
	assert.Equal(t, "Membro Promovido", updated.FullName)

	demote := domain.StaffRoleUser
	_, err = svc.Update(context.Background(), admin, admin.ID, StaffUpdateInput{Role: &demote})
	assert.Equal(t, "CONFLICT", errCode(err))

	bogus := domain.StaffRole("owner")
	_, err = svc.Update(context.Background(), admin, member.ID, StaffUpdateInput{Role: &bogus})
	assert.Equal(t, "VALIDATION_FAILED", errCode(err))

	assert.Equal(t, "CONFLICT", errCode(svc.Remove(context.Background(), admin, admin.ID)))
}

func TestStaffRemoveClearsAssignments(t *testing.T) {
	f := newFixture(t, nil)
	admin := f.seedStaff(t, "Admin", "admin@example.com", domain.StaffRoleAdmin, "password1")
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	svc := NewStaffService(f.cfg, f.repos.Staff)
	ticket := f.submitAnonymous(t, domain.TicketTypeComplaint)
	_, err := f.tickets.Assign(context.Background(), admin, ticket.ID, &agent.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), admin, agent.ID))

	stored, err := f.repos.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResponsibleAgent)

	_, err = f.repos.Staff.GetByEmail(context.Background(), "agent@example.com")
	assert.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errCode(svc.Remove(context.Background(), admin, agent.ID)))
}

func TestAuthLoginAndPasswordChange(t *testing.T) {
	f := newFixture(t, nil)
	agent := f.seedStaff(t, "Agente", "agent@example.com", domain.StaffRoleAgent, "password1")
	tokens := auth.NewTokenManager(f.cfg.Auth.JWTSecret, f.cfg.Auth.AccessTokenTTLMinutes)
	svc := NewAuthService(f.cfg, f.repos.Staff, tokens)

	_, _, err := svc.Login(context.Background(), "agent@example.com", "wrong")
	assert.Equal(t, "UNAUTHORIZED", errCode(err))
	_, _, err = svc.Login(context.Background(), "ghost@example.com", "password1")
	assert.Equal(t, "UNAUTHORIZED", errCode(err))

	profile, session, err := svc.Login(context.Background(), " AGENT@example.com ", "password1")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, profile.ID)
	claims, err := tokens.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, agent.UserID, claims.Subject)

	me, err := svc.Me(context.Background(), session.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleAgent, me.Role)

	assert.Equal(t, "VALIDATION_FAILED", errCode(svc.ChangePassword(context.Background(), agent.UserID, "password1", "short")))
	assert.Equal(t, "UNAUTHORIZED", errCode(svc.ChangePassword(context.Background(), agent.UserID, "nope", "a-better-password")))
	require.NoError(t, svc.ChangePassword(context.Background(), agent.UserID, "password1", "a-better-password"))

	_, _, err = svc.Login(context.Background(), "agent@example.com", "a-better-password")
	assert.NoError(t, err)
}
