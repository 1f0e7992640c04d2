package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/api/dto"
	"github.com/spec-kit/ouvidoria-service/internal/service"
)

// TicketsHandler serves the public submission and tracking endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Submit handles POST /api/public/tickets.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Submit(c.UserContext(), service.TicketSubmitInput{
		Type:              req.Type,
		IsAnonymous:       req.IsAnonymous,
		FullName:          req.FullName,
		WhatsappContact:   req.WhatsappContact,
		Email:             req.Email,
		EmailConfirmation: req.EmailConfirmation,
		Campus:            req.Campus,
		Description:       req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitTicketResponse{
		ProtocolNumber: ticket.ProtocolNumber,
		Status:         ticket.Status,
		DueDate:        ticket.DueDate,
		CreatedAt:      ticket.CreatedAt,
	}})
}

// Lookup handles GET /api/public/tickets/:protocol.
func (h *TicketsHandler) Lookup(c *fiber.Ctx) error {
	view, err := h.tickets.Lookup(c.UserContext(), c.Params("protocol"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": publicTicketResponse(view)})
}

// Contest handles POST /api/public/tickets/:protocol/contest.
func (h *TicketsHandler) Contest(c *fiber.Ctx) error {
	view, err := h.tickets.Contest(c.UserContext(), c.Params("protocol"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": publicTicketResponse(view)})
}
