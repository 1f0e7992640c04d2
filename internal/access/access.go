// Package access resolves what a caller's role lets them see and do.
// Every check derives from the roster role alone; anything unrecognised is
// treated as an anonymous visitor.
package access

import (
	"sort"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// Role is the caller's effective role. RoleNone is the unauthenticated visitor.
type Role string

const (
	RoleNone  Role = "none"
	RoleUser  Role = Role(domain.StaffRoleUser)
	RoleAgent Role = Role(domain.StaffRoleAgent)
	RoleAdmin Role = Role(domain.StaffRoleAdmin)
)

// Capability names one gated action.
type Capability string

const (
	CapSubmitTicket   Capability = "submit_ticket"
	CapLookupProtocol Capability = "lookup_protocol"
	CapViewQueue      Capability = "view_queue"
	CapEditTicket     Capability = "edit_ticket"
	CapManageNotes    Capability = "manage_notes"
	CapViewDashboard  Capability = "view_dashboard"
	CapManageStaff    Capability = "manage_staff"
	CapManageEmails   Capability = "manage_emails"
	CapManageContent  Capability = "manage_content"
)

// Navigation targets exposed to the portal.
const (
	NavHome          = "/"
	NavTracking      = "/acompanhar"
	NavLogin         = "/auth"
	NavQueue         = "/admin"
	NavDashboard     = "/dashboard"
	NavPendingEmails = "/emails-pendentes"
	NavStaff         = "/gerenciar-equipe"
)

var public = []Capability{CapSubmitTicket, CapLookupProtocol}

var staff = append(append([]Capability{}, public...), CapViewQueue, CapEditTicket, CapManageNotes)

var policy = map[Role][]Capability{
	RoleNone:  public,
	RoleUser:  public,
	RoleAgent: staff,
	RoleAdmin: append(append([]Capability{}, staff...),
		CapViewDashboard, CapManageStaff, CapManageEmails, CapManageContent),
}

var navigation = []struct {
	target string
	needs  Capability
}{
	{NavHome, CapSubmitTicket},
	{NavTracking, CapLookupProtocol},
	{NavQueue, CapViewQueue},
	{NavDashboard, CapViewDashboard},
	{NavPendingEmails, CapManageEmails},
	{NavStaff, CapManageStaff},
}

// CapabilitySet is an immutable view of the capabilities granted to a role.
type CapabilitySet map[Capability]struct{}

// Has reports whether cap is in the set.
func (s CapabilitySet) Has(cap Capability) bool {
	_, ok := s[cap]
	return ok
}

// List returns the capabilities sorted by name.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for cap := range s {
		out = append(out, cap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Normalize maps a raw role string to a known role. Unknown values become RoleNone.
func Normalize(raw string) Role {
	role := Role(raw)
	if _, ok := policy[role]; ok {
		return role
	}
	return RoleNone
}

// FromStaff returns the role of a roster profile, or RoleNone without one.
func FromStaff(profile *domain.StaffProfile) Role {
	if profile == nil {
		return RoleNone
	}
	return Normalize(string(profile.Role))
}

// VisibleActions returns every capability granted to role.
func VisibleActions(role Role) CapabilitySet {
	caps := policy[Normalize(string(role))]
	set := make(CapabilitySet, len(caps))
	for _, cap := range caps {
		set[cap] = struct{}{}
	}
	return set
}

// Can reports whether role holds cap.
func Can(role Role, cap Capability) bool {
	for _, granted := range policy[Normalize(string(role))] {
		if granted == cap {
			return true
		}
	}
	return false
}

// NavTargets lists the portal screens role may open, in menu order. The login
// screen is offered only to visitors.
func NavTargets(role Role) []string {
	role = Normalize(string(role))
	targets := make([]string, 0, len(navigation)+1)
	for _, item := range navigation {
		if Can(role, item.needs) {
			targets = append(targets, item.target)
		}
	}
	if role == RoleNone {
		targets = append(targets, NavLogin)
	}
	return targets
}
