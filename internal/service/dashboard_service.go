package service

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	"github.com/spec-kit/ouvidoria-service/internal/sla"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const dashboardMonths = 6

// AgentClosedCount is the number of closed tickets a staff member is responsible for.
type AgentClosedCount struct {
	StaffID  string
	FullName string
	Closed   int
}

// MonthCount is the number of tickets created in a calendar month.
type MonthCount struct {
	Month string
	Count int
}

// DashboardStats aggregates the whole ticket base for the admin dashboard.
type DashboardStats struct {
	Total         int
	ByStatus      map[domain.TicketStatus]int
	ByType        map[domain.TicketType]int
	ByCampus      map[domain.Campus]int
	ClosedByAgent []AgentClosedCount
	Monthly       []MonthCount
	// OpenBySLA classifies every ticket that is not closed.
	OpenBySLA map[sla.Class]int
}

// DashboardService computes admin aggregates.
type DashboardService struct {
	tickets repository.TicketRepository
	staff   repository.StaffRepository
	sla     *sla.Calculator
}

// NewDashboardService creates the service.
func NewDashboardService(tickets repository.TicketRepository, staff repository.StaffRepository, calc *sla.Calculator) *DashboardService {
	if calc == nil {
		calc = sla.NewCalculator(nil, nil)
	}
	return &DashboardService{tickets: tickets, staff: staff, sla: calc}
}

// Stats builds the dashboard at the calculator's current time.
func (s *DashboardService) Stats(ctx context.Context, actor *domain.StaffProfile) (*DashboardStats, error) {
	if !access.Can(access.FromStaff(actor), access.CapViewDashboard) {
		return nil, apperrors.NewForbidden("admin role required")
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	roster, err := s.staff.List(ctx, repository.StaffFilter{})
	if err != nil {
		return nil, err
	}

	now := s.sla.Now()
	loc := s.sla.Location()
	stats := &DashboardStats{
		Total:     len(tickets),
		ByStatus:  make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		ByType:    make(map[domain.TicketType]int, len(domain.TicketTypes)),
		ByCampus:  make(map[domain.Campus]int),
		OpenBySLA: make(map[sla.Class]int),
	}
	for _, status := range domain.TicketStatuses {
		stats.ByStatus[status] = 0
	}
	for _, ticketType := range domain.TicketTypes {
		stats.ByType[ticketType] = 0
	}

	months := lastMonths(now.In(loc), dashboardMonths)
	monthIndex := make(map[string]int, len(months))
	for i, month := range months {
		monthIndex[month] = i
	}
	monthly := make([]MonthCount, len(months))
	for i, month := range months {
		monthly[i] = MonthCount{Month: month}
	}

	closedBy := map[string]int{}
	for i := range tickets {
		ticket := &tickets[i]
		stats.ByStatus[ticket.Status]++
		stats.ByType[ticket.Type]++
		stats.ByCampus[ticket.Campus]++
		if idx, ok := monthIndex[ticket.CreatedAt.In(loc).Format("2006-01")]; ok {
			monthly[idx].Count++
		}
		if ticket.Status == domain.TicketStatusClosed {
			if ticket.ResponsibleAgent != nil {
				closedBy[*ticket.ResponsibleAgent]++
			}
			continue
		}
		stats.OpenBySLA[s.sla.Classify(ticket.CreatedAt, now, ticket.Status, ticket.IsAnonymous)]++
	}
	stats.Monthly = monthly

	for _, member := range roster {
		if closed := closedBy[member.ID]; closed > 0 {
			stats.ClosedByAgent = append(stats.ClosedByAgent, AgentClosedCount{
				StaffID:  member.ID,
				FullName: member.FullName,
				Closed:   closed,
			})
		}
	}
	sort.Slice(stats.ClosedByAgent, func(i, j int) bool {
		a, b := stats.ClosedByAgent[i], stats.ClosedByAgent[j]
		if a.Closed != b.Closed {
			return a.Closed > b.Closed
		}
		return a.FullName < b.FullName
	})
	return stats, nil
}

// lastMonths lists the n calendar months ending with now's month, oldest first.
func lastMonths(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, now.Location())
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = first.AddDate(0, -i, 0).Format("2006-01")
	}
	return out
}
