package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/api/dto"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	"github.com/spec-kit/ouvidoria-service/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// StaffTicketsHandler handles the staff queue and ticket editing endpoints.
type StaffTicketsHandler struct {
	tickets *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService}
}

// List handles GET /api/admin/tickets.
func (h *StaffTicketsHandler) List(c *fiber.Ctx) error {
	items, err := h.tickets.ListQueue(c.UserContext(), parseQueueFilter(c))
	if err != nil {
		return err
	}
	out := make([]dto.TicketResponse, 0, len(items))
	for i := range items {
		out = append(out, ticketResponse(&items[i].Ticket, &items[i].SLA))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /api/admin/tickets/:id.
func (h *StaffTicketsHandler) Get(c *fiber.Ctx) error {
	view, err := h.tickets.GetForStaff(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(view)})
}

// Update handles PATCH /api/admin/tickets/:id.
func (h *StaffTicketsHandler) Update(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateByStaff(c.UserContext(), staff, c.Params("id"), service.TicketStaffUpdateInput{
		Status:            req.Status,
		ResolutionSummary: req.ResolutionSummary,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// Assign handles PUT /api/admin/tickets/:id/assignee.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Assign(c.UserContext(), staff, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// ListNotes handles GET /api/admin/tickets/:id/notes.
func (h *StaffTicketsHandler) ListNotes(c *fiber.Ctx) error {
	notes, err := h.tickets.ListNotes(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, noteResponse(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// AddNote handles POST /api/admin/tickets/:id/notes.
func (h *StaffTicketsHandler) AddNote(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	note, err := h.tickets.AddNote(c.UserContext(), staff, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

// History handles GET /api/admin/tickets/:id/history.
func (h *StaffTicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.tickets.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries, true)})
}

func parseQueueFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
			}
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
