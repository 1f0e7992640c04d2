// Package sla computes business-day response windows for tickets and
// classifies how close a ticket is to breaching its window.
//
// Business days are Monday through Friday. Holidays are not modelled.
package sla

import (
	"math"
	"time"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// Class is the escalation level rendered next to a ticket.
type Class string

const (
	ClassNone    Class = "none"
	ClassOK      Class = "ok"
	ClassWarning Class = "warning"
	ClassOverdue Class = "overdue"
)

const (
	IdentifiedLimitDays = 15
	AnonymousLimitDays  = 30

	warningRatio = 0.7
)

// LimitDays returns the response window in business days. Anonymous
// submitters cannot be asked for clarification, so they get a longer window.
func LimitDays(isAnonymous bool) int {
	if isAnonymous {
		return AnonymousLimitDays
	}
	return IdentifiedLimitDays
}

// WarningThreshold returns the elapsed business days at which a ticket
// starts being flagged.
func WarningThreshold(limit int) int {
	return int(math.Floor(float64(limit) * warningRatio))
}

// Calculator evaluates business days in a fixed location with an injectable clock.
type Calculator struct {
	loc *time.Location
	now func() time.Time
}

// NewCalculator builds a calculator. A nil location means UTC and a nil
// clock means time.Now.
func NewCalculator(loc *time.Location, now func() time.Time) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calculator{loc: loc, now: now}
}

// Now returns the current instant according to the calculator's clock.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// Location returns the location calendar days are taken from.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// BusinessDaysElapsed counts weekdays between the calendar dates of start and
// end, both inclusive. It returns 0 when end falls on an earlier date than start.
func (c *Calculator) BusinessDaysElapsed(start, end time.Time) int {
	from := c.civilDate(start)
	to := c.civilDate(end)
	if to.Before(from) {
		return 0
	}

	days := daysBetween(from, to) + 1
	count := (days / 7) * 5
	day := from.AddDate(0, 0, (days/7)*7)
	for i := 0; i < days%7; i++ {
		if isBusinessDay(day.Weekday()) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// DueDate returns the date on which the ticket's elapsed business days reach
// its limit, keeping the creation time of day.
func (c *Calculator) DueDate(createdAt time.Time, isAnonymous bool) time.Time {
	limit := LimitDays(isAnonymous)
	local := createdAt.In(c.loc)
	day := c.civilDate(createdAt)

	counted := 0
	for {
		if isBusinessDay(day.Weekday()) {
			counted++
			if counted == limit {
				break
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), c.loc)
}

// Classify returns the escalation class of a ticket at now. Closed tickets
// carry no pressure. Tickets in progress are always flagged as needing
// attention, whatever their elapsed time.
func (c *Calculator) Classify(createdAt, now time.Time, status domain.TicketStatus, isAnonymous bool) Class {
	if status == domain.TicketStatusClosed {
		return ClassNone
	}
	if status == domain.TicketStatusInProgress {
		return ClassWarning
	}
	return classifyElapsed(c.BusinessDaysElapsed(createdAt, now), LimitDays(isAnonymous))
}

func classifyElapsed(elapsed, limit int) Class {
	switch {
	case elapsed >= limit:
		return ClassOverdue
	case elapsed >= WarningThreshold(limit):
		return ClassWarning
	default:
		return ClassOK
	}
}

// Report bundles everything the queue and tracking views show about a
// ticket's window.
type Report struct {
	Class            Class
	ElapsedDays      int
	LimitDays        int
	WarningThreshold int
	RemainingDays    int
	DueDate          time.Time
}

// Evaluate builds a Report for the ticket at the calculator's current time.
// The stored due date is reported as is and never recomputed.
func (c *Calculator) Evaluate(ticket *domain.Ticket) Report {
	now := c.Now()
	limit := LimitDays(ticket.IsAnonymous)
	elapsed := c.BusinessDaysElapsed(ticket.CreatedAt, now)
	remaining := limit - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Report{
		Class:            c.Classify(ticket.CreatedAt, now, ticket.Status, ticket.IsAnonymous),
		ElapsedDays:      elapsed,
		LimitDays:        limit,
		WarningThreshold: WarningThreshold(limit),
		RemainingDays:    remaining,
		DueDate:          ticket.DueDate,
	}
}

// civilDate returns noon of t's calendar date in the calculator's location.
// Noon keeps day stepping clear of DST transitions at midnight.
func (c *Calculator) civilDate(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, c.loc)
}

// daysBetween counts calendar days from a to b using UTC dates, where every
// day is exactly 24 hours long.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

func isBusinessDay(day time.Weekday) bool {
	return day != time.Saturday && day != time.Sunday
}
