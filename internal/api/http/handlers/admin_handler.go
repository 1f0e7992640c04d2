package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/api/dto"
	"github.com/spec-kit/ouvidoria-service/internal/service"
)

const defaultEmailListLimit = 100

// AdminHandler serves the dashboard and the pending email outbox.
type AdminHandler struct {
	dashboard *service.DashboardService
	outbox    *service.EmailOutboxService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(dashboard *service.DashboardService, outbox *service.EmailOutboxService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, outbox: outbox}
}

// Dashboard handles GET /api/admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	stats, err := h.dashboard.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(stats)})
}

// ListEmails handles GET /api/admin/emails. Pass ?unsent=true for the
// undelivered queue only.
func (h *AdminHandler) ListEmails(c *fiber.Ctx) error {
	emails, err := h.outbox.List(c.UserContext(), c.QueryBool("unsent", false), parseInt(c.Query("limit"), defaultEmailListLimit))
	if err != nil {
		return err
	}
	out := make([]dto.PendingEmailResponse, 0, len(emails))
	for i := range emails {
		out = append(out, pendingEmailResponse(&emails[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// MarkEmailSent handles POST /api/admin/emails/:id/sent.
func (h *AdminHandler) MarkEmailSent(c *fiber.Ctx) error {
	email, err := h.outbox.MarkSent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pendingEmailResponse(email)})
}
